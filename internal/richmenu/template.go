package richmenu

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Template 预设的区域布局
type Template struct {
	ID     string     `json:"id" yaml:"id"`
	Name   string     `json:"name" yaml:"name"`
	Width  int        `json:"width" yaml:"width"`
	Height int        `json:"height" yaml:"height"`
	Areas  []FlatArea `json:"areas" yaml:"areas"`
}

// Size 模板对应的菜单尺寸
func (t Template) Size() Size {
	return Size{Width: t.Width, Height: t.Height}
}

// IsCompact 是否为紧凑型（高度低于 1000）
func (t Template) IsCompact() bool {
	return t.Height < CompactHeightThreshold
}

// IsLarge 是否为大尺寸（高度高于 1000）；恰好 1000 的不属于任何一组
func (t Template) IsLarge() bool {
	return t.Height > CompactHeightThreshold
}

// Reset 返回模板区域的副本，保留坐标并清空动作
func (t Template) Reset() []FlatArea {
	areas := make([]FlatArea, len(t.Areas))
	for i, a := range t.Areas {
		a.Action = EmptyAction()
		areas[i] = a
	}
	return areas
}

// NewDesign 以模板初始化编辑器状态
func (t Template) NewDesign() Design {
	return Design{
		TemplateID: t.ID,
		Areas:      t.Reset(),
	}
}

type catalog struct {
	Templates []Template `yaml:"templates"`
}

var (
	loadOnce  sync.Once
	templates []Template
	loadErr   error
)

func parseTemplates(data []byte) ([]Template, error) {
	var c catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode template catalog failed: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Templates))
	for _, t := range c.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template without id")
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return c.Templates, nil
}

func loadTemplates() []Template {
	loadOnce.Do(func() {
		templates, loadErr = parseTemplates(templatesYAML)
	})
	if loadErr != nil {
		// 内嵌文件损坏属于构建错误
		panic(loadErr)
	}
	return templates
}

// Templates 返回全部模板（副本）
func Templates() []Template {
	src := loadTemplates()
	out := make([]Template, len(src))
	for i, t := range src {
		t.Areas = append([]FlatArea(nil), t.Areas...)
		out[i] = t
	}
	return out
}

// DefaultTemplate 编辑器初始模板
func DefaultTemplate() Template {
	return Templates()[0]
}

// TemplateByID 根据 ID 查找模板
func TemplateByID(id string) (Template, bool) {
	for _, t := range Templates() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// LargeTemplates 大尺寸模板
func LargeTemplates() []Template {
	var out []Template
	for _, t := range Templates() {
		if t.IsLarge() {
			out = append(out, t)
		}
	}
	return out
}

// CompactTemplates 紧凑型模板
func CompactTemplates() []Template {
	var out []Template
	for _, t := range Templates() {
		if t.IsCompact() {
			out = append(out, t)
		}
	}
	return out
}

// MatchTemplate 按宽、高和区域数量匹配第一个模板
func MatchTemplate(size Size, areaCount int) (Template, bool) {
	for _, t := range Templates() {
		if t.Width == size.Width && t.Height == size.Height && len(t.Areas) == areaCount {
			return t, true
		}
	}
	return Template{}, false
}
