package exam

// Score counts the positions where the submitted answer equals the question's
// correct answer. Answers are aligned to questions by index: a missing answer
// never matches and answers beyond the last question are ignored.
func Score(e *Exam, answers []Answer) (Result, error) {
	if e == nil {
		return Result{}, ErrInvalidExam
	}

	res := Result{TotalQuestions: len(e.Questions)}
	for i, q := range e.Questions {
		if i >= len(answers) {
			break
		}
		if q.CorrectAnswer.Equal(answers[i]) {
			res.Score++
		}
	}
	return res, nil
}
