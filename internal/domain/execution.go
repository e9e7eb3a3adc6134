package domain

type ExecutionRequest struct {
	Language Language
	Code     string
	Stdin    string
}

type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	HasError bool   `json:"hasError"`
	Status   string `json:"status"`
}
