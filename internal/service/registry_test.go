package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/shared/types"
)

type mockProvider struct {
	mock.Mock
	id       string
	category types.Category
}

func newMockProvider(id string) *mockProvider {
	return &mockProvider{id: id, category: types.CategoryFilesystem}
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "Directory listing for testing",
		Category:     m.category,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{ID: m.id + ".test", Name: "Test Tool", Returns: "string"},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	args := m.Called(ctx, toolID, params)
	result, _ := args.Get(0).(*types.Result)
	return result, args.Error(1)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(newMockProvider("files")))
	_, ok := r.Get("files")
	assert.True(t, ok)

	assert.Error(t, r.Register(newMockProvider("")))

	r.Unregister("files")
	_, ok = r.Get("files")
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	r := NewRegistry()
	media := newMockProvider("media")
	media.category = types.CategoryMedia
	require.NoError(t, r.Register(newMockProvider("files")))
	require.NoError(t, r.Register(newMockProvider("cache")))
	require.NoError(t, r.Register(media))

	services := r.List(nil)
	require.Len(t, services, 3)
	assert.Equal(t, "cache", services[0].ID)
	assert.Equal(t, "files", services[1].ID)

	cat := types.CategoryMedia
	filtered := r.List(&cat)
	require.Len(t, filtered, 1)
	assert.Equal(t, "media", filtered[0].ID)
}

func TestDiscover(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("files")))
	require.NoError(t, r.Register(newMockProvider("fonts")))

	results := r.Discover("files directory", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "files", results[0].ID)

	assert.Empty(t, r.Discover("zzz", 5))
}

func TestExecute(t *testing.T) {
	metrics := monitoring.NewMetrics()
	r := NewRegistry(WithMetrics(metrics))
	p := newMockProvider("files")
	require.NoError(t, r.Register(p))

	ctx := context.Background()
	p.On("Execute", ctx, "files.test", map[string]interface{}{}).
		Return(&types.Result{Success: true, Data: map[string]interface{}{"result": "success"}}, nil).Once()

	result, err := r.Execute(ctx, "files.test", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	p.AssertExpectations(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ServiceCalls.WithLabelValues("files", "files.test", "success")))
}

func TestExecuteFailures(t *testing.T) {
	r := NewRegistry()
	p := newMockProvider("files")
	require.NoError(t, r.Register(p))

	result, err := r.Execute(context.Background(), "nodot", nil)
	assert.Error(t, err)
	assert.False(t, result.Success)

	result, err = r.Execute(context.Background(), "missing.tool", nil)
	assert.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "service not found")

	p.On("Execute", mock.Anything, "files.boom", mock.Anything).Return(nil, errors.New("unknown tool: files.boom"))
	_, err = r.Execute(context.Background(), "files.boom", map[string]interface{}{})
	assert.EqualError(t, err, "unknown tool: files.boom")
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockProvider("test1")))
	require.NoError(t, r.Register(newMockProvider("test2")))

	stats := r.Stats()
	assert.Equal(t, 2, stats["total_services"])
	assert.Equal(t, 2, stats["total_tools"])
	assert.Equal(t, map[string]int{"filesystem": 2}, stats["categories"])
}
