package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/platewatch/platewatch-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	glmTestURL    = "https://glm.test/chat/completions"
	openAITestURL = "https://openai.test/v1/chat/completions"
)

func visionTestConfig() *config.Config {
	return &config.Config{
		GLMAPIKey:      "glm-key",
		GLMAPIURL:      glmTestURL,
		GLMVisionModel: "glm-4v-plus",
		OpenAIAPIKey:   "openai-key",
		OpenAIAPIURL:   openAITestURL,
		OpenAIModel:    "gpt-4o",
		AITimeout:      5 * time.Second,
	}
}

func newMockedRecognizer(cfg *config.Config) *VisionRecognizer {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	return &VisionRecognizer{cfg: cfg, client: client}
}

func chatCompletion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
}

func TestRecognizePlate_SanitizesOutput(t *testing.T) {
	rec := newMockedRecognizer(visionTestConfig())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, glmTestURL,
		httpmock.NewJsonResponderOrPanic(200, chatCompletion(" 7abc-123. ")))

	plate, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "7ABC123", plate)
}

func TestRecognizePlate_UnknownSentinel(t *testing.T) {
	rec := newMockedRecognizer(visionTestConfig())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, glmTestURL,
		httpmock.NewJsonResponderOrPanic(200, chatCompletion("UNKNOWN")))

	plate, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, UnknownPlate, plate)
}

func TestRecognizePlate_EmptyContentIsUnknown(t *testing.T) {
	rec := newMockedRecognizer(visionTestConfig())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, glmTestURL,
		httpmock.NewJsonResponderOrPanic(200, chatCompletion("   ")))

	plate, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, UnknownPlate, plate)
}

func TestRecognizePlate_FallsBackToSecondProvider(t *testing.T) {
	rec := newMockedRecognizer(visionTestConfig())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, glmTestURL,
		httpmock.NewStringResponder(500, "quota exceeded"))
	httpmock.RegisterResponder(http.MethodPost, openAITestURL,
		httpmock.NewJsonResponderOrPanic(200, chatCompletion("XYZ999")))

	plate, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "XYZ999", plate)
}

func TestRecognizePlate_AllProvidersFail(t *testing.T) {
	rec := newMockedRecognizer(visionTestConfig())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, glmTestURL,
		httpmock.NewStringResponder(500, "boom"))
	httpmock.RegisterResponder(http.MethodPost, openAITestURL,
		httpmock.NewStringResponder(503, "unavailable"))

	_, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	assert.ErrorIs(t, err, ErrAnalysisFailed)
}

func TestRecognizePlate_NoProviderConfigured(t *testing.T) {
	cfg := visionTestConfig()
	cfg.GLMAPIKey = ""
	cfg.OpenAIAPIKey = ""
	rec := newMockedRecognizer(cfg)
	defer httpmock.DeactivateAndReset()

	_, err := rec.RecognizePlate(context.Background(), "data:image/jpeg;base64,AAAA")
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Zero(t, httpmock.GetTotalCallCount())
}
