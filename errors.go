package showdown

import "errors"

// 错误定义
var (
	// 连接相关错误
	ErrNotConnected     = errors.New("showdown: not connected")
	ErrAlreadyConnected = errors.New("showdown: already connected")
	ErrSendQueueFull    = errors.New("showdown: send queue full")

	// 插件相关错误
	ErrPluginExists   = errors.New("showdown: plugin already registered")
	ErrPluginNotFound = errors.New("showdown: plugin not found")

	// 登录相关错误
	ErrLoginFailed   = errors.New("showdown: login failed")
	ErrNoAssertion   = errors.New("showdown: login response has no assertion")
	ErrEmptyChallstr = errors.New("showdown: empty challstr")

	// 配置相关错误
	ErrInvalidConfig = errors.New("showdown: invalid config")
)
