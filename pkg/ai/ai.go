package ai

// AiInterface AI客户端通用接口
type AiInterface interface {
	Name() string
	HandleText(string) (string, error)
}
