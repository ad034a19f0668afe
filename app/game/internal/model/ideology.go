package model

// Ideology 教派，服务器内名称唯一
type Ideology struct {
	ServerID    string `json:"server_id"`
	Name        string `json:"name"`
	FounderUser string `json:"founder_user"`
	Followers   int64  `json:"followers"`
}
