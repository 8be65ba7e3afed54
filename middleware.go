package zmux

// BeforeSend 复合请求信封发出前执行，可以追加信封头（如鉴权信息）
type BeforeSend func(req *Pack)

// AfterReceive 收到复合响应信封后、分发到各回调前执行
type AfterReceive func(req, rep *Pack)
