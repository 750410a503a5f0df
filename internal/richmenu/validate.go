package richmenu

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		// 错误路径使用 JSON 字段名，便于前端定位
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structCheck = v
	})
	return structCheck
}

// ValidationError 汇总菜单配置的全部校验问题
type ValidationError struct {
	errs *multierror.Error
}

func (e *ValidationError) Error() string {
	return "invalid rich menu: " + strings.Join(e.Problems(), "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.errs
}

// Problems 逐条返回校验问题
func (e *ValidationError) Problems() []string {
	if e == nil || e.errs == nil {
		return nil
	}
	out := make([]string, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		out = append(out, err.Error())
	}
	return out
}

// IsValidationError reports whether err carries rich menu validation problems.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func wrapProblems(result *multierror.Error) error {
	if result.ErrorOrNil() == nil {
		return nil
	}
	return &ValidationError{errs: result}
}

// Validate 按 LINE 的限制校验菜单配置
func Validate(m *RichMenu) error {
	if m == nil {
		return wrapProblems(multierror.Append(nil, errors.New("rich menu is required")))
	}

	var result *multierror.Error
	result = appendStructProblems(result, structValidator().Struct(m))

	if m.Size.Width > 0 && m.Size.Height > 0 {
		ratio := float64(m.Size.Width) / float64(m.Size.Height)
		if ratio < MinAspectRatio {
			result = multierror.Append(result, fmt.Errorf("size: width/height ratio must be at least %.2f, got %.2f", MinAspectRatio, ratio))
		}
	}

	for i, area := range m.Areas {
		if !fitsInside(area.Bounds, m.Size) {
			result = multierror.Append(result, fmt.Errorf("areas[%d].bounds: exceeds menu size %dx%d", i, m.Size.Width, m.Size.Height))
		}
		for _, err := range actionRules(area.Action) {
			result = multierror.Append(result, fmt.Errorf("areas[%d].action: %w", i, err))
		}
	}

	return wrapProblems(result)
}

// fitsInside 区域是否完全落在菜单内；越界或非法的坐标（已由结构校验报告）不再重复报告
// 用减法比较，避免超大坐标相加溢出
func fitsInside(b Bounds, size Size) bool {
	if b.X < 0 || b.Y < 0 || b.Width < 1 || b.Height < 1 || size.Width < 1 || size.Height < 1 {
		return true
	}
	return b.X <= size.Width-b.Width && b.Y <= size.Height-b.Height
}

// ValidateAction 校验单个区域的动作（编辑器保存时使用）
func ValidateAction(a Action) error {
	var result *multierror.Error
	result = appendStructProblems(result, structValidator().Struct(a))
	for _, err := range actionRules(a) {
		result = multierror.Append(result, err)
	}
	return wrapProblems(result)
}

// actionRules 检查各动作类型的必填字段；未知类型由结构校验负责
func actionRules(a Action) []error {
	var errs []error
	switch a.Type {
	case ActionTypeURI:
		if strings.TrimSpace(a.URI) == "" {
			errs = append(errs, errors.New("uri is required for uri action"))
		} else if !isAllowedURI(a.URI) {
			errs = append(errs, fmt.Errorf("uri %q must start with http://, https://, line:// or tel:", a.URI))
		}
	case ActionTypeMessage:
		if strings.TrimSpace(a.Text) == "" {
			errs = append(errs, errors.New("text is required for message action"))
		}
	case ActionTypePostback:
		if strings.TrimSpace(a.Data) == "" {
			errs = append(errs, errors.New("data is required for postback action"))
		}
	}
	return errs
}

func isAllowedURI(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "line":
		return u.Host != "" || u.Opaque != ""
	case "tel":
		return u.Opaque != ""
	default:
		return false
	}
}

func appendStructProblems(result *multierror.Error, err error) *multierror.Error {
	if err == nil {
		return result
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return multierror.Append(result, err)
	}
	for _, fe := range fieldErrs {
		result = multierror.Append(result, fmt.Errorf("%s: %s", fieldPath(fe), describe(fe)))
	}
	return result
}

// fieldPath 去掉顶层结构体名，例如 RichMenu.areas[0].action.uri -> areas[0].action.uri
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
