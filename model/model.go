package model

// ProcessRequest 去背消息
// Pixels 为 RGBA8 行优先像素，JSON 中以 base64 传输
type ProcessRequest struct {
	ID            string   `json:"id"`
	Pixels        []byte   `json:"pixels"`
	Mode          string   `json:"mode"`
	TargetColor   string   `json:"target_color"`
	Tolerance     *float64 `json:"tolerance,omitempty"`
	ErodeStrength *int     `json:"erode_strength,omitempty"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
}

// ProcessResponse 原样返回请求 ID
type ProcessResponse struct {
	ID      string `json:"id"`
	Pixels  []byte `json:"pixels"`
	Removed int    `json:"removed"`
	Eroded  int    `json:"eroded"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
