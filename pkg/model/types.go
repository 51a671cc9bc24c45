package model

type SessionID string
type TargetID string

// SessionConfig 页面会话配置
type SessionConfig struct {
	DevToolsURL      string   `json:"devToolsURL"`
	Target           TargetID `json:"target"`
	ProcessTimeoutMS int      `json:"processTimeoutMS"`
	SettleMS         int      `json:"settleMS"`
}

// SessionInfo 会话状态快照
type SessionInfo struct {
	ID       SessionID `json:"id"`
	Services []string  `json:"services"`
}
