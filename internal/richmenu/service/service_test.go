package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"richmenu_console/internal/console/models"
	"richmenu_console/internal/line"
	"richmenu_console/internal/logger"
	"richmenu_console/internal/richmenu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	calls []string

	createID   string
	createErr  error
	uploadErr  error
	applyErr   error
	deleteErr  error
	defaultID  string
	listResult json.RawMessage

	createBody  []byte
	uploadType  string
	uploadToken string
}

func (f *fakeLine) CreateRichMenu(_ context.Context, token string, body []byte) (string, error) {
	f.calls = append(f.calls, "create")
	f.createBody = body
	return f.createID, f.createErr
}

func (f *fakeLine) UploadRichMenuImage(_ context.Context, token, id, contentType string, _ []byte) error {
	f.calls = append(f.calls, "upload:"+id)
	f.uploadType = contentType
	f.uploadToken = token
	return f.uploadErr
}

func (f *fakeLine) SetDefaultRichMenu(_ context.Context, _, id string) error {
	f.calls = append(f.calls, "apply:"+id)
	return f.applyErr
}

func (f *fakeLine) ListRichMenus(context.Context, string) (json.RawMessage, error) {
	f.calls = append(f.calls, "list")
	return f.listResult, nil
}

func (f *fakeLine) DeleteRichMenu(_ context.Context, _, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return f.deleteErr
}

func (f *fakeLine) GetDefaultRichMenuID(context.Context, string) (string, error) {
	f.calls = append(f.calls, "default")
	return f.defaultID, nil
}

type fakeRecorder struct {
	ops []*models.Operation
	err error
}

func (r *fakeRecorder) Record(_ context.Context, op *models.Operation) error {
	r.ops = append(r.ops, op)
	return r.err
}

type fakeNotifier struct {
	mu  sync.Mutex
	ops []models.Operation
}

func (n *fakeNotifier) Notify(op models.Operation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ops = append(n.ops, op)
}

func (n *fakeNotifier) Close() {}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func jpegImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

const compactConfig = `{
	"size": {"width": 2500, "height": 843},
	"selected": true,
	"name": "Main",
	"chatBarText": "Menu",
	"areas": [
		{"x": 0, "y": 0, "width": 1250, "height": 843, "action": {"type": "uri", "uri": "https://example.com"}},
		{"bounds": {"x": 1250, "y": 0, "width": 1250, "height": 843}, "action": {"type": "message", "text": "hi"}}
	]
}`

func newTestService(fl *fakeLine) (Service, *fakeRecorder, *fakeNotifier) {
	rec := &fakeRecorder{}
	n := &fakeNotifier{}
	return NewRichMenuService(fl, Options{Recorder: rec, Notifier: n}), rec, n
}

func TestCreateRunsThreeSteps(t *testing.T) {
	fl := &fakeLine{createID: "richmenu-1"}
	svc, rec, n := newTestService(fl)

	ctx := logger.ContextWithRequestID(context.Background(), "req-42")
	result, err := svc.Create(ctx, "token", CreateInput{
		Config: []byte(compactConfig),
		Image:  pngImage(t, 2500, 843),
	})
	require.NoError(t, err)

	assert.Equal(t, "richmenu-1", result.RichMenuID)
	assert.Equal(t, []string{"create", "upload:richmenu-1", "apply:richmenu-1"}, fl.calls)
	assert.Equal(t, "image/png", fl.uploadType)
	assert.Equal(t, "token", fl.uploadToken)

	// the forwarded body always uses the bounds shape
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(fl.createBody, &sent))
	areas := sent["areas"].([]interface{})
	first := areas[0].(map[string]interface{})
	assert.Contains(t, first, "bounds")
	assert.NotContains(t, first, "x")

	require.Len(t, rec.ops, 1)
	assert.Equal(t, models.OperationCreate, rec.ops[0].Kind)
	assert.Equal(t, models.OperationStatusSuccess, rec.ops[0].Status)
	assert.Equal(t, "req-42", rec.ops[0].RequestID)
	assert.Equal(t, "Main", rec.ops[0].MenuName)
	require.Len(t, n.ops, 1)
	assert.Equal(t, "richmenu-1", n.ops[0].RichMenuID)
}

func TestCreateAcceptsJPEG(t *testing.T) {
	fl := &fakeLine{createID: "richmenu-2"}
	svc, _, _ := newTestService(fl)

	_, err := svc.Create(context.Background(), "token", CreateInput{
		Config: []byte(compactConfig),
		Image:  jpegImage(t, 2500, 843),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", fl.uploadType)
}

func TestCreateStopsAtFailedStep(t *testing.T) {
	upstream := &line.APIError{StatusCode: 400, Body: `{"message":"bad"}`, Message: "bad"}

	tests := []struct {
		name      string
		fl        *fakeLine
		wantStep  string
		wantCalls []string
		wantID    string
	}{
		{
			name:      "create fails",
			fl:        &fakeLine{createErr: upstream},
			wantStep:  StepCreate,
			wantCalls: []string{"create"},
		},
		{
			name:      "upload fails",
			fl:        &fakeLine{createID: "rm-1", uploadErr: upstream},
			wantStep:  StepUpload,
			wantCalls: []string{"create", "upload:rm-1"},
			wantID:    "rm-1",
		},
		{
			name:      "apply fails",
			fl:        &fakeLine{createID: "rm-1", applyErr: upstream},
			wantStep:  StepApply,
			wantCalls: []string{"create", "upload:rm-1", "apply:rm-1"},
			wantID:    "rm-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, rec, n := newTestService(tt.fl)

			_, err := svc.Create(context.Background(), "token", CreateInput{
				Config: []byte(compactConfig),
				Image:  pngImage(t, 2500, 843),
			})
			require.Error(t, err)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.wantStep, stepErr.Step)
			assert.Equal(t, tt.wantID, stepErr.RichMenuID)

			apiErr, ok := line.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, 400, apiErr.StatusCode)

			assert.Equal(t, tt.wantCalls, tt.fl.calls)
			assert.False(t, IsInvalidInput(err))

			require.Len(t, rec.ops, 1)
			assert.Equal(t, models.OperationStatusFailed, rec.ops[0].Status)
			assert.Equal(t, tt.wantStep, rec.ops[0].Step)
			require.Len(t, n.ops, 1)
		})
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	goodImage := pngImage(t, 2500, 843)

	tests := []struct {
		name    string
		token   string
		in      CreateInput
		wantErr string
	}{
		{"no token", "", CreateInput{Config: []byte(compactConfig), Image: goodImage}, "Token required"},
		{"no json", "t", CreateInput{Image: goodImage}, "Missing json or image"},
		{"no image", "t", CreateInput{Config: []byte(compactConfig)}, "Missing json or image"},
		{"bad json", "t", CreateInput{Config: []byte(`{`), Image: goodImage}, "invalid rich menu json"},
		{"invalid menu", "t", CreateInput{Config: []byte(`{"size":{"width":2500,"height":843},"name":"","chatBarText":"x","areas":[]}`), Image: goodImage}, "invalid rich menu"},
		{"not an image", "t", CreateInput{Config: []byte(compactConfig), Image: []byte("GIF89a....")}, "image must be JPEG or PNG"},
		{"wrong dimensions", "t", CreateInput{Config: []byte(compactConfig), Image: pngImage(t, 2500, 1686)}, "image is 2500x1686 but rich menu size is 2500x843"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl := &fakeLine{createID: "x"}
			svc, rec, _ := newTestService(fl)

			_, err := svc.Create(context.Background(), tt.token, tt.in)
			require.Error(t, err)
			assert.True(t, IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, fl.calls)
			assert.Empty(t, rec.ops)
		})
	}
}

func TestCreateRejectsOversizedImage(t *testing.T) {
	fl := &fakeLine{createID: "x"}
	svc := NewRichMenuService(fl, Options{MaxImageBytes: 10})

	_, err := svc.Create(context.Background(), "t", CreateInput{Config: []byte(compactConfig), Image: pngImage(t, 2500, 843)})
	require.Error(t, err)
	assert.True(t, IsInvalidInput(err))
	assert.Contains(t, err.Error(), "image exceeds 10 bytes")
}

func TestCreateInvalidMenuExposesProblems(t *testing.T) {
	svc, _, _ := newTestService(&fakeLine{})

	_, err := svc.Create(context.Background(), "t", CreateInput{
		Config: []byte(`{"size":{"width":2500,"height":843},"name":"x","chatBarText":"x","areas":[{"x":0,"y":0,"width":10,"height":10,"action":{"type":"message"}}]}`),
		Image:  pngImage(t, 2500, 843),
	})
	require.Error(t, err)
	assert.True(t, richmenu.IsValidationError(err))
}

func TestCreateIgnoresRecorderFailure(t *testing.T) {
	fl := &fakeLine{createID: "rm-1"}
	rec := &fakeRecorder{err: errors.New("mongo down")}
	svc := NewRichMenuService(fl, Options{Recorder: rec})

	result, err := svc.Create(context.Background(), "t", CreateInput{Config: []byte(compactConfig), Image: pngImage(t, 2500, 843)})
	require.NoError(t, err)
	assert.Equal(t, "rm-1", result.RichMenuID)
	assert.Len(t, rec.ops, 1)
}

func TestSetDefaultAndDeleteRecordOperations(t *testing.T) {
	fl := &fakeLine{deleteErr: &line.APIError{StatusCode: 404, Message: "Not found"}}
	svc, rec, n := newTestService(fl)

	require.NoError(t, svc.SetDefault(context.Background(), "t", " rm-1 "))
	err := svc.Delete(context.Background(), "t", "rm-2")
	require.Error(t, err)
	assert.True(t, line.IsNotFound(err))

	assert.Equal(t, []string{"apply:rm-1", "delete:rm-2"}, fl.calls)
	require.Len(t, rec.ops, 2)
	assert.Equal(t, models.OperationSetDefault, rec.ops[0].Kind)
	assert.True(t, rec.ops[0].Succeeded())
	assert.Equal(t, models.OperationDelete, rec.ops[1].Kind)
	assert.False(t, rec.ops[1].Succeeded())
	assert.Len(t, n.ops, 2)
}

func TestSetDefaultAndDeleteValidateInput(t *testing.T) {
	fl := &fakeLine{}
	svc, _, _ := newTestService(fl)

	assert.True(t, IsInvalidInput(svc.SetDefault(context.Background(), "", "rm-1")))
	assert.True(t, IsInvalidInput(svc.SetDefault(context.Background(), "t", "  ")))
	assert.True(t, IsInvalidInput(svc.Delete(context.Background(), "", "rm-1")))
	assert.True(t, IsInvalidInput(svc.Delete(context.Background(), "t", "")))
	assert.Empty(t, fl.calls)
}

func TestListAndDefault(t *testing.T) {
	fl := &fakeLine{listResult: json.RawMessage(`{"richmenus":[]}`), defaultID: "rm-7"}
	svc, _, _ := newTestService(fl)

	raw, err := svc.List(context.Background(), "t")
	require.NoError(t, err)
	assert.JSONEq(t, `{"richmenus":[]}`, string(raw))

	id, err := svc.DefaultRichMenuID(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, "rm-7", id)

	_, err = svc.List(context.Background(), "")
	assert.True(t, IsInvalidInput(err))
}

func TestExportDesign(t *testing.T) {
	svc, _, _ := newTestService(&fakeLine{})

	menu, err := svc.ExportDesign(richmenu.Design{TemplateID: "small-5"})
	require.NoError(t, err)
	assert.Equal(t, richmenu.Size{Width: 2500, Height: 843}, menu.Size)
	assert.Equal(t, richmenu.DefaultMenuName, menu.Name)
	require.Len(t, menu.Areas, 1)
	assert.Equal(t, richmenu.EmptyAction(), menu.Areas[0].Action)

	_, err = svc.ExportDesign(richmenu.Design{TemplateID: "missing"})
	assert.True(t, IsInvalidInput(err))

	menu, err = svc.ExportDesign(richmenu.Design{})
	require.NoError(t, err)
	assert.Equal(t, richmenu.DefaultTemplate().Size(), menu.Size)
	assert.Len(t, menu.Areas, len(richmenu.DefaultTemplate().Areas))
}

func TestNewDesign(t *testing.T) {
	svc, _, _ := newTestService(&fakeLine{})

	design, err := svc.NewDesign("")
	require.NoError(t, err)
	assert.Equal(t, richmenu.DefaultTemplate().ID, design.TemplateID)

	design, err = svc.NewDesign("large-4")
	require.NoError(t, err)
	require.Len(t, design.Areas, 3)
	for _, area := range design.Areas {
		assert.Equal(t, richmenu.EmptyAction(), area.Action)
	}

	_, err = svc.NewDesign("missing")
	assert.True(t, IsInvalidInput(err))
}

func TestCreateForwardsUnknownActionFields(t *testing.T) {
	fl := &fakeLine{createID: "rm-1"}
	svc, _, _ := newTestService(fl)

	config := `{
		"size": {"width": 2500, "height": 843},
		"name": "Main",
		"chatBarText": "Menu",
		"areas": [
			{"bounds": {"x": 0, "y": 0, "width": 1250, "height": 843},
			 "action": {"type": "postback", "data": "a=1", "inputOption": "openKeyboard", "fillInText": "hello"}},
			{"x": 1250, "y": 0, "width": 1250, "height": 843,
			 "action": {"type": "uri", "uri": "https://example.com", "altUri": {"desktop": "https://example.com/pc"}}}
		]
	}`
	_, err := svc.Create(context.Background(), "t", CreateInput{Config: []byte(config), Image: pngImage(t, 2500, 843)})
	require.NoError(t, err)

	var sent struct {
		Areas []struct {
			Action map[string]interface{} `json:"action"`
		} `json:"areas"`
	}
	require.NoError(t, json.Unmarshal(fl.createBody, &sent))
	require.Len(t, sent.Areas, 2)

	postback := sent.Areas[0].Action
	assert.Equal(t, "postback", postback["type"])
	assert.Equal(t, "a=1", postback["data"])
	assert.Equal(t, "openKeyboard", postback["inputOption"])
	assert.Equal(t, "hello", postback["fillInText"])

	uri := sent.Areas[1].Action
	assert.Equal(t, map[string]interface{}{"desktop": "https://example.com/pc"}, uri["altUri"])
}

func TestImportConfig(t *testing.T) {
	svc, _, _ := newTestService(&fakeLine{})

	result, err := svc.ImportConfig([]byte(compactConfig))
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "small-2", result.Design.TemplateID)
	assert.Equal(t, "Main", result.Design.Name)

	_, err = svc.ImportConfig(nil)
	assert.True(t, IsInvalidInput(err))

	_, err = svc.ImportConfig([]byte(`[1,2]`))
	assert.True(t, IsInvalidInput(err))
}
