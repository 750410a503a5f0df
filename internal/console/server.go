package console

import (
	"net/http"

	"richmenu_console/internal/console/repository"
	"richmenu_console/internal/richmenu"
	"richmenu_console/internal/richmenu/service"
)

// 非上传接口的请求体上限
const maxJSONBodyBytes = 1 << 20

// multipart 表单中除图片以外内容的余量
const multipartOverheadBytes = 256 << 10

// Options Server 可选依赖
type Options struct {
	// History 为 nil 时 /api/history 返回 503
	History        repository.OperationRepository
	MaxUploadBytes int64
}

// Server 控制台 HTTP 接口
type Server struct {
	service        service.Service
	history        repository.OperationRepository
	maxUploadBytes int64
}

// NewServer 创建控制台 HTTP 服务
func NewServer(svc service.Service, opts Options) *Server {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = richmenu.MaxImageSizeBytes
	}
	return &Server{
		service:        svc,
		history:        opts.History,
		maxUploadBytes: maxUpload,
	}
}

// Handler 注册全部路由并套上中间件
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/create", s.handleCreate)
	mux.HandleFunc("GET /api/list", s.handleList)
	mux.HandleFunc("GET /api/default", s.handleDefault)
	mux.HandleFunc("POST /api/setdefault/{id}", s.handleSetDefault)
	mux.HandleFunc("DELETE /api/delete/{id}", s.handleDelete)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/design/new", s.handleNewDesign)
	mux.HandleFunc("POST /api/design/export", s.handleExport)
	mux.HandleFunc("POST /api/design/import", s.handleImport)
	mux.HandleFunc("POST /api/design/action", s.handleValidateAction)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return withRequestID(withAccessLog(withRecover(mux)))
}
