package richmenu

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// rawArea 兼容两种区域格式：平铺 {x,y,width,height} 与 {bounds:{...}}
type rawArea struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Bounds *Bounds `json:"bounds"`
	Action *Action `json:"action"`
}

type rawRichMenu struct {
	Size        *Size           `json:"size"`
	Selected    bool            `json:"selected"`
	Name        string          `json:"name"`
	ChatBarText string          `json:"chatBarText"`
	Areas       json.RawMessage `json:"areas"`
}

// NormalizeAreas 将任意格式的区域数组统一为平铺格式
// 存在 bounds 时以 bounds 为准；缺少 action 时补为空的 uri 动作
func NormalizeAreas(raw json.RawMessage) ([]FlatArea, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []FlatArea{}, nil
	}

	var items []rawArea
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode areas failed: %w", err)
	}

	areas := make([]FlatArea, 0, len(items))
	for _, item := range items {
		areas = append(areas, item.flatten())
	}
	return areas, nil
}

func (a rawArea) flatten() FlatArea {
	area := FlatArea{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
	if a.Bounds != nil {
		area.X = a.Bounds.X
		area.Y = a.Bounds.Y
		area.Width = a.Bounds.Width
		area.Height = a.Bounds.Height
	}
	if a.Action != nil {
		area.Action = *a.Action
	} else {
		area.Action = EmptyAction()
	}
	return area
}

// ToAreas 平铺区域转换为上游 bounds 格式
func ToAreas(flat []FlatArea) []Area {
	areas := make([]Area, 0, len(flat))
	for _, a := range flat {
		areas = append(areas, a.ToArea())
	}
	return areas
}

// ParseRichMenu 解析菜单配置，区域可以是任意一种格式，结果统一为 bounds 格式
func ParseRichMenu(data []byte) (*RichMenu, error) {
	var raw rawRichMenu
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rich menu failed: %w", err)
	}
	if raw.Size == nil {
		return nil, fmt.Errorf("rich menu size is required")
	}

	flat, err := NormalizeAreas(raw.Areas)
	if err != nil {
		return nil, err
	}

	return &RichMenu{
		Size:        *raw.Size,
		Selected:    raw.Selected,
		Name:        raw.Name,
		ChatBarText: raw.ChatBarText,
		Areas:       ToAreas(flat),
	}, nil
}

// ToRichMenu 按导出规则生成上游配置：selected 固定为 true，名称与菜单栏文字为空时使用默认值
func (d Design) ToRichMenu(size Size) RichMenu {
	name := d.Name
	if name == "" {
		name = DefaultMenuName
	}
	chatBarText := d.ChatBarText
	if chatBarText == "" {
		chatBarText = DefaultChatBarText
	}

	return RichMenu{
		Size:        size,
		Selected:    true,
		Name:        name,
		ChatBarText: chatBarText,
		Areas:       ToAreas(d.Areas),
	}
}

// ImportResult 导入配置的结果
type ImportResult struct {
	Design  Design `json:"design"`
	Size    *Size  `json:"size,omitempty"`
	Matched bool   `json:"matched"`
}

// ImportDesign 将导出的配置还原为编辑器状态
// 只有同时包含 size 与 areas 时才替换区域并尝试匹配模板（按宽、高和区域数量）
func ImportDesign(data []byte) (*ImportResult, error) {
	var raw rawRichMenu
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode rich menu failed: %w", err)
	}

	result := &ImportResult{
		Design: Design{
			Name:        raw.Name,
			ChatBarText: raw.ChatBarText,
		},
		Size: raw.Size,
	}

	areasRaw := bytes.TrimSpace(raw.Areas)
	if raw.Size == nil || len(areasRaw) == 0 || bytes.Equal(areasRaw, []byte("null")) {
		return result, nil
	}

	flat, err := NormalizeAreas(raw.Areas)
	if err != nil {
		return nil, err
	}
	result.Design.Areas = flat

	if tpl, ok := MatchTemplate(*raw.Size, len(flat)); ok {
		result.Design.TemplateID = tpl.ID
		result.Matched = true
	}

	return result, nil
}
