package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"richmenu_console/internal/line"
	"richmenu_console/internal/logger"
	"richmenu_console/internal/richmenu"
	"richmenu_console/internal/richmenu/service"
)

const (
	defaultHistoryLimit = 50
	setDefaultFailure   = "Failed to set default rich menu"
)

// bearerToken 取 Authorization 头，去掉 "Bearer " 前缀后原样转发给上游
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// handleCreate POST /api/create
// multipart 字段：json（菜单配置）+ image（背景图）
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	limit := s.maxUploadBytes + multipartOverheadBytes
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request exceeds %d bytes", limit))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request exceeds %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, "Missing json or image")
		return
	}
	defer r.MultipartForm.RemoveAll()

	config, err := formValueOrFile(r.MultipartForm, "json")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing json or image")
		return
	}
	image, err := formValueOrFile(r.MultipartForm, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing json or image")
		return
	}

	result, err := s.service.Create(r.Context(), token, service.CreateInput{Config: config, Image: image})
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, upstreamText(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// formValueOrFile 读取普通字段或文件字段，两者都没有时返回错误
func formValueOrFile(form *multipart.Form, key string) ([]byte, error) {
	if values := form.Value[key]; len(values) > 0 && values[0] != "" {
		return []byte(values[0]), nil
	}
	files := form.File[key]
	if len(files) == 0 {
		return nil, fmt.Errorf("missing form field %q", key)
	}

	f, err := files[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty form field %q", key)
	}
	return data, nil
}

// handleList GET /api/list
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	raw, err := s.service.List(r.Context(), token)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, upstreamText(err))
		return
	}

	writeRawJSON(w, http.StatusOK, raw)
}

// handleDefault GET /api/default
func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	richMenuID, err := s.service.DefaultRichMenuID(r.Context(), token)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, upstreamText(err))
		return
	}

	writeJSON(w, http.StatusOK, service.CreateResult{RichMenuID: richMenuID})
}

// handleSetDefault POST /api/setdefault/{id}
// Authorization 头原样转发；上游失败时沿用上游状态码与 message
func (s *Server) handleSetDefault(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing token")
		return
	}

	err := s.service.SetDefault(r.Context(), token, r.PathValue("id"))
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		if apiErr, ok := line.AsAPIError(err); ok {
			message := apiErr.Message
			if message == "" {
				message = setDefaultFailure
			}
			writeError(w, apiErr.StatusCode, message)
			return
		}
		logger.FromContext(r.Context()).Errorf("Set default rich menu failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleDelete DELETE /api/delete/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusBadRequest, "Token required")
		return
	}

	if err := s.service.Delete(r.Context(), token, r.PathValue("id")); err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "LINE API error: "+upstreamText(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTemplates GET /api/templates
func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]richmenu.Template{
		"large":   richmenu.LargeTemplates(),
		"compact": richmenu.CompactTemplates(),
	})
}

// handleNewDesign GET /api/design/new?templateId=ID
// 未指定模板时使用第一个模板
func (s *Server) handleNewDesign(w http.ResponseWriter, r *http.Request) {
	design, err := s.service.NewDesign(r.URL.Query().Get("templateId"))
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, design)
}

// handleExport POST /api/design/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var design richmenu.Design
	if err := decodeJSONBody(w, r, &design); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	menu, err := s.service.ExportDesign(design)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, menu)
}

// handleImport POST /api/design/import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := s.service.ImportConfig(data)
	if err != nil {
		if writeInputError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleValidateAction POST /api/design/action
// 编辑器保存动作前的校验
func (s *Server) handleValidateAction(w http.ResponseWriter, r *http.Request) {
	var action richmenu.Action
	if err := decodeJSONBody(w, r, &action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := richmenu.ValidateAction(action); err != nil {
		writeValidationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "action": action})
}

// handleHistory GET /api/history?limit=N&richMenuId=ID
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	query := r.URL.Query()
	if richMenuID := strings.TrimSpace(query.Get("richMenuId")); richMenuID != "" {
		ops, err := s.history.ListByRichMenu(r.Context(), richMenuID)
		if err != nil {
			logger.FromContext(r.Context()).Errorf("List operations failed: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
		return
	}

	limit := int64(defaultHistoryLimit)
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ops, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Errorf("List operations failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operations": ops})
}

// handleHealth GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// writeInputError 参数错误时写 400 并返回 true
func writeInputError(w http.ResponseWriter, err error) bool {
	if !service.IsInvalidInput(err) {
		return false
	}
	if richmenu.IsValidationError(err) {
		writeValidationError(w, err)
		return true
	}

	var inputErr *service.InputError
	if errors.As(err, &inputErr) && inputErr.Err == nil {
		writeError(w, http.StatusBadRequest, inputErr.Reason)
		return true
	}
	writeError(w, http.StatusBadRequest, err.Error())
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var vErr *richmenu.ValidationError
	if errors.As(err, &vErr) {
		resp.Error = vErr.Error()
		resp.Problems = vErr.Problems()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// upstreamText 优先返回上游原始响应体
func upstreamText(err error) string {
	if apiErr, ok := line.AsAPIError(err); ok && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}
