package domain

// EvaluationRequest is forwarded to the code evaluator. Its response is
// passed through to the caller untouched once it parses as JSON.
type EvaluationRequest struct {
	Language Language
	Code     string
	Problem  string
}
