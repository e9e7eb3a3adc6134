package http

type executeRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

type executeResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	HasError bool   `json:"hasError"`
	Status   string `json:"status,omitempty"`
}

type evaluateRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Problem  string `json:"problem"`
}

type evaluateError struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

type googleAuthRequest struct {
	Token string `json:"token"`
}

type googleAuthResponse struct {
	Success bool   `json:"success"`
	User    any    `json:"user,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

type roomResponse struct {
	ID       string   `json:"id"`
	Users    []string `json:"users"`
	Language string   `json:"language"`
	Code     string   `json:"code"`
	HasCode  bool     `json:"hasCode"`
}

type statsResponse struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
	Connections  int `json:"connections"`
	Evicted      int `json:"evicted"`
}
