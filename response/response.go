package response

// Response 统一响应结构
type Response struct {
	Code int         `json:"code" example:"0"`      // 业务状态码
	Msg  string      `json:"msg" example:"success"` // 提示消息
	Data interface{} `json:"data,omitempty"`        // 响应数据
}

// 业务状态码定义
// 使用说明：
// - 中间件层：使用 HTTP 状态码（401/403/429/500）
// - 业务层：HTTP 200 + 业务状态码
const (
	CodeSuccess        = 0     // 成功
	CodeParamError     = 10001 // 参数错误
	CodeUserNotFound   = 10002 // 用户不存在
	CodePasswordError  = 10003 // 密码错误（登录失败）
	CodeTokenInvalid   = 10004 // Token 无效/过期/会话已注销
	CodePermissionDeny = 10005 // 权限不足（非成员/非参与者）
	CodeNotFound       = 10006 // 资源不存在
	CodeConflict       = 10007 // 资源冲突（重复注册/重复邀请）
	CodeRateLimited    = 10008 // 触发限流
	CodeInternalError  = 99999 // 内部错误
)

// Success 成功响应
func Success(data interface{}, args ...string) *Response {
	msg := "success"
	for _, arg := range args {
		msg = arg
	}
	return &Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	}
}

// Error 错误响应
func Error(code int, msg string) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
	}
}
