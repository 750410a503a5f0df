package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"richmenu_console/internal/console/models"
	"richmenu_console/internal/logger"
	"richmenu_console/internal/notify"
	"richmenu_console/internal/richmenu"

	"github.com/gabriel-vasile/mimetype"
)

// 创建流程的步骤名称
const (
	StepCreate = "create"
	StepUpload = "upload"
	StepApply  = "apply"
)

const recordTimeout = 5 * time.Second

// LineAPI LINE 菜单接口（*line.Client 满足）
type LineAPI interface {
	CreateRichMenu(ctx context.Context, token string, body []byte) (string, error)
	UploadRichMenuImage(ctx context.Context, token, richMenuID, contentType string, image []byte) error
	SetDefaultRichMenu(ctx context.Context, token, richMenuID string) error
	ListRichMenus(ctx context.Context, token string) (json.RawMessage, error)
	DeleteRichMenu(ctx context.Context, token, richMenuID string) error
	GetDefaultRichMenuID(ctx context.Context, token string) (string, error)
}

// Recorder 操作记录写入接口（repository.OperationRepository 满足）
type Recorder interface {
	Record(ctx context.Context, op *models.Operation) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, *models.Operation) error { return nil }

// Service 定义菜单管理相关操作
type Service interface {
	Create(ctx context.Context, token string, in CreateInput) (*CreateResult, error)
	List(ctx context.Context, token string) (json.RawMessage, error)
	DefaultRichMenuID(ctx context.Context, token string) (string, error)
	SetDefault(ctx context.Context, token, richMenuID string) error
	Delete(ctx context.Context, token, richMenuID string) error
	NewDesign(templateID string) (*richmenu.Design, error)
	ExportDesign(design richmenu.Design) (*richmenu.RichMenu, error)
	ImportConfig(data []byte) (*richmenu.ImportResult, error)
}

// CreateInput 创建菜单的输入：配置 JSON（任意区域格式）+ 背景图
type CreateInput struct {
	Config []byte
	Image  []byte
}

// CreateResult 创建结果
type CreateResult struct {
	RichMenuID string `json:"richMenuId"`
}

// Options 服务可选依赖
type Options struct {
	Recorder      Recorder
	Notifier      notify.Notifier
	MaxImageBytes int64
}

type richMenuService struct {
	line          LineAPI
	recorder      Recorder
	notifier      notify.Notifier
	maxImageBytes int64
}

// NewRichMenuService 创建基于 LINE 的菜单服务实现
func NewRichMenuService(line LineAPI, opts Options) Service {
	s := &richMenuService{
		line:          line,
		recorder:      opts.Recorder,
		notifier:      opts.Notifier,
		maxImageBytes: opts.MaxImageBytes,
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.maxImageBytes <= 0 {
		s.maxImageBytes = richmenu.MaxImageSizeBytes
	}
	return s
}

// Create 注册菜单 → 上传图片 → 应用到所有用户
// 任一步失败立即返回，不重试也不回滚已完成的步骤
func (s *richMenuService) Create(ctx context.Context, token string, in CreateInput) (*CreateResult, error) {
	if token == "" {
		return nil, invalidInput("Token required", nil)
	}
	if len(bytes.TrimSpace(in.Config)) == 0 || len(in.Image) == 0 {
		return nil, invalidInput("Missing json or image", nil)
	}

	menu, err := richmenu.ParseRichMenu(in.Config)
	if err != nil {
		return nil, invalidInput("invalid rich menu json", err)
	}
	if err := richmenu.Validate(menu); err != nil {
		return nil, invalidInput("invalid rich menu", err)
	}

	contentType, err := s.checkImage(in.Image, menu.Size)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(menu)
	if err != nil {
		return nil, fmt.Errorf("encode rich menu failed: %w", err)
	}

	log := logger.FromContext(ctx).WithField("menu_name", menu.Name)

	richMenuID, err := s.line.CreateRichMenu(ctx, token, body)
	if err != nil {
		return nil, s.failCreate(ctx, menu.Name, "", StepCreate, err)
	}
	log = log.WithField("rich_menu_id", richMenuID)
	log.Info("Rich menu registered")

	if err := s.line.UploadRichMenuImage(ctx, token, richMenuID, contentType, in.Image); err != nil {
		return nil, s.failCreate(ctx, menu.Name, richMenuID, StepUpload, err)
	}
	log.Debug("Rich menu image uploaded")

	if err := s.line.SetDefaultRichMenu(ctx, token, richMenuID); err != nil {
		return nil, s.failCreate(ctx, menu.Name, richMenuID, StepApply, err)
	}
	log.Info("Rich menu applied to all users")

	s.track(ctx, &models.Operation{
		Kind:       models.OperationCreate,
		RichMenuID: richMenuID,
		MenuName:   menu.Name,
		Status:     models.OperationStatusSuccess,
	})

	return &CreateResult{RichMenuID: richMenuID}, nil
}

func (s *richMenuService) failCreate(ctx context.Context, name, richMenuID, step string, err error) error {
	logger.FromContext(ctx).
		WithField("menu_name", name).
		WithField("rich_menu_id", richMenuID).
		Warnf("Rich menu %s step failed: %v", step, err)

	s.track(ctx, &models.Operation{
		Kind:       models.OperationCreate,
		RichMenuID: richMenuID,
		MenuName:   name,
		Step:       step,
		Status:     models.OperationStatusFailed,
		Error:      err.Error(),
	})
	return &StepError{Step: step, RichMenuID: richMenuID, Err: err}
}

// checkImage 检查图片格式（仅 JPEG/PNG）、大小，以及尺寸是否与菜单一致
func (s *richMenuService) checkImage(data []byte, size richmenu.Size) (string, error) {
	if int64(len(data)) > s.maxImageBytes {
		return "", invalidInput(fmt.Sprintf("image exceeds %d bytes", s.maxImageBytes), nil)
	}

	mtype := mimetype.Detect(data)
	if !mtype.Is("image/jpeg") && !mtype.Is("image/png") {
		return "", invalidInput(fmt.Sprintf("image must be JPEG or PNG, got %s", mtype.String()), nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", invalidInput("unreadable image", err)
	}
	if cfg.Width != size.Width || cfg.Height != size.Height {
		return "", invalidInput(fmt.Sprintf("image is %dx%d but rich menu size is %dx%d",
			cfg.Width, cfg.Height, size.Width, size.Height), nil)
	}

	return mtype.String(), nil
}

// List 返回上游菜单列表（不做转换）
func (s *richMenuService) List(ctx context.Context, token string) (json.RawMessage, error) {
	if token == "" {
		return nil, invalidInput("Token required", nil)
	}
	return s.line.ListRichMenus(ctx, token)
}

// DefaultRichMenuID 当前默认菜单 ID，未设置时为空
func (s *richMenuService) DefaultRichMenuID(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", invalidInput("Token required", nil)
	}
	return s.line.GetDefaultRichMenuID(ctx, token)
}

// SetDefault 设为所有用户的默认菜单
func (s *richMenuService) SetDefault(ctx context.Context, token, richMenuID string) error {
	if token == "" {
		return invalidInput("Missing token", nil)
	}
	richMenuID = strings.TrimSpace(richMenuID)
	if richMenuID == "" {
		return invalidInput("Rich Menu ID required", nil)
	}

	err := s.line.SetDefaultRichMenu(ctx, token, richMenuID)
	s.track(ctx, operationResult(models.OperationSetDefault, richMenuID, err))
	return err
}

// Delete 删除菜单
func (s *richMenuService) Delete(ctx context.Context, token, richMenuID string) error {
	if token == "" {
		return invalidInput("Token required", nil)
	}
	richMenuID = strings.TrimSpace(richMenuID)
	if richMenuID == "" {
		return invalidInput("Rich Menu ID required", nil)
	}

	err := s.line.DeleteRichMenu(ctx, token, richMenuID)
	s.track(ctx, operationResult(models.OperationDelete, richMenuID, err))
	return err
}

func operationResult(kind, richMenuID string, err error) *models.Operation {
	op := &models.Operation{
		Kind:       kind,
		RichMenuID: richMenuID,
		Status:     models.OperationStatusSuccess,
	}
	if err != nil {
		op.Status = models.OperationStatusFailed
		op.Error = err.Error()
	}
	return op
}

// track 记录操作并推送通知；两者都是尽力而为，失败只记日志
func (s *richMenuService) track(ctx context.Context, op *models.Operation) {
	if requestID, ok := logger.RequestIDFromContext(ctx); ok {
		op.RequestID = requestID
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.Record(recordCtx, op); err != nil {
		logger.FromContext(ctx).Warnf("Failed to record %s operation: %v", op.Kind, err)
	}

	s.notifier.Notify(*op)
}

// resolveTemplate 空 ID 对应编辑器的初始模板
func resolveTemplate(templateID string) (richmenu.Template, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return richmenu.DefaultTemplate(), nil
	}
	tpl, ok := richmenu.TemplateByID(templateID)
	if !ok {
		return richmenu.Template{}, invalidInput(fmt.Sprintf("unknown template %q", templateID), nil)
	}
	return tpl, nil
}

// NewDesign 选择模板后的编辑器初始状态，动作全部清空
func (s *richMenuService) NewDesign(templateID string) (*richmenu.Design, error) {
	tpl, err := resolveTemplate(templateID)
	if err != nil {
		return nil, err
	}
	design := tpl.NewDesign()
	return &design, nil
}

// ExportDesign 将编辑器状态导出为上游格式（带 bounds）
// 未给出区域时使用模板的区域（动作清空）
func (s *richMenuService) ExportDesign(design richmenu.Design) (*richmenu.RichMenu, error) {
	tpl, err := resolveTemplate(design.TemplateID)
	if err != nil {
		return nil, err
	}
	if design.Areas == nil {
		design.Areas = tpl.Reset()
	}

	menu := design.ToRichMenu(tpl.Size())
	return &menu, nil
}

// ImportConfig 将配置还原为编辑器状态，并尝试匹配模板
func (s *richMenuService) ImportConfig(data []byte) (*richmenu.ImportResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, invalidInput("empty rich menu json", nil)
	}
	result, err := richmenu.ImportDesign(data)
	if err != nil {
		return nil, invalidInput("invalid rich menu json", err)
	}
	return result, nil
}
