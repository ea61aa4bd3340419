package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/adapters/llm"
	"github.com/satriahrh/agribot/domain"
	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/usecase"
)

// maxVoiceBytes bounds an uploaded voice clip
const maxVoiceBytes = 25 << 20

// createSession opens a new chat session.
//
// @Summary  Open a session
// @Tags     sessions
// @Accept   json
// @Produce  json
// @Param    request  body      CreateSessionRequest  false  "Display language, en or kn"
// @Success  201      {object}  CreateSessionResponse
// @Failure  400      {object}  ErrorResponse
// @Router   /sessions [post]
func (h *Handler) createSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind create session request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	language := entities.English
	if req.Language != "" {
		parsed, err := entities.ParseLanguageTag(req.Language)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "unsupported_language",
				Message: err.Error(),
			})
		}
		language = parsed
	}

	ctx := c.Request().Context()
	session, err := h.sessions.Create(ctx, language)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to create session",
		})
	}

	token, expiresAt, err := h.tokens.Issue(session.ID, string(language))
	if err != nil {
		h.logger.Error("Failed to issue session token",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		_ = h.sessions.Delete(ctx, session.ID)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.logger.Info("Session opened",
		zap.String("sessionID", session.ID),
		zap.String("language", string(language)))

	return c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		Language:  language,
	})
}

func (h *Handler) setLanguage(c echo.Context) error {
	var req SetLanguageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	language, err := entities.ParseLanguageTag(req.Language)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unsupported_language",
			Message: err.Error(),
		})
	}

	session := sessionFrom(c)
	session.SetLanguage(language)
	return c.JSON(http.StatusOK, SetLanguageResponse{SessionID: session.ID, Language: language})
}

// getMessages lists the session's conversation.
//
// @Summary   List chat history
// @Tags      chat
// @Produce   json
// @Security  BearerAuth
// @Success   200  {array}   domain.ConversationMessage
// @Failure   401  {object}  ErrorResponse
// @Router    /chat/messages [get]
func (h *Handler) getMessages(c echo.Context) error {
	session := sessionFrom(c)

	messages := session.Conversation.Messages()
	out := make([]domain.ConversationMessage, 0, len(messages))
	for _, m := range messages {
		_, hasAudio := session.Audio.Get(m.ID)
		out = append(out, domain.ConversationMessage{Message: m, HasAudio: hasAudio})
	}
	return c.JSON(http.StatusOK, out)
}

// postMessage runs one typed chat turn.
//
// @Summary      Send a chat message
// @Description  English input is answered directly. Other input is translated to English,
// @Description  answered, and translated back; Kannada answers get a narration clip.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      ChatMessageRequest  true  "Message text"
// @Success      200      {object}  domain.ChatReply
// @Failure      400      {object}  ErrorResponse
// @Failure      502      {object}  ErrorResponse  "Completion service failed after all retries"
// @Router       /chat/messages [post]
func (h *Handler) postMessage(c echo.Context) error {
	var req ChatMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	session := sessionFrom(c)
	result, err := h.chat.HandleText(c.Request().Context(), session, req.Text)
	if err != nil {
		return h.turnError(c, session, err)
	}
	return c.JSON(http.StatusOK, result.Reply(session.ID, false))
}

// postVoice transcribes a voice clip and runs a chat turn for it.
//
// @Summary      Send a voice message
// @Description  The clip is the raw request body or the multipart field "audio".
// @Tags         chat
// @Accept       audio/wav
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        encoding     query     string  false  "Audio encoding, derived from Content-Type when omitted"
// @Param        sample_rate  query     int     false  "Sample rate in Hz"
// @Param        language     query     string  false  "Recognition locale, kn-IN when omitted"
// @Success      200          {object}  domain.ChatReply
// @Failure      409          {object}  ErrorResponse  "Same clip as the previous voice message"
// @Failure      422          {object}  ErrorResponse  "Speech not recognised"
// @Router       /chat/voice [post]
func (h *Handler) postVoice(c echo.Context) error {
	audio, contentType, err := readVoice(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_audio",
			Message: err.Error(),
		})
	}

	config := repositories.AudioConfig{
		Encoding: c.QueryParam("encoding"),
		Language: c.QueryParam("language"),
	}
	if config.Encoding == "" {
		config.Encoding = encodingFromContentType(contentType)
	}
	if raw := c.QueryParam("sample_rate"); raw != "" {
		rate, err := strconv.Atoi(raw)
		if err != nil || rate < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_request",
				Message: "sample_rate must be a positive integer",
			})
		}
		config.SampleRate = rate
	}

	session := sessionFrom(c)
	result, err := h.chat.HandleVoice(c.Request().Context(), session, audio, config)
	if err != nil {
		return h.turnError(c, session, err)
	}
	return c.JSON(http.StatusOK, result.Reply(session.ID, false))
}

func (h *Handler) clearMessages(c echo.Context) error {
	session := sessionFrom(c)
	h.chat.Clear(session)
	return c.NoContent(http.StatusNoContent)
}

// getMessageAudio serves a cached narration. Audio is never synthesized here.
func (h *Handler) getMessageAudio(c echo.Context) error {
	session := sessionFrom(c)
	clip, ok := session.Audio.Get(entities.MessageID(c.Param("id")))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "audio_not_found",
			Message: "No audio for this message",
		})
	}
	return c.Blob(http.StatusOK, "audio/mpeg", clip)
}

// getWeather returns current weather, or the default reading when unavailable.
//
// @Summary  Current weather
// @Tags     advisory
// @Produce  json
// @Param    lat  query     number  true  "Latitude"
// @Param    lon  query     number  true  "Longitude"
// @Success  200  {object}  entities.WeatherReading
// @Failure  400  {object}  ErrorResponse
// @Router   /weather [get]
func (h *Handler) getWeather(c echo.Context) error {
	lat, errLat := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_coordinates",
			Message: "lat and lon query parameters are required",
		})
	}
	return c.JSON(http.StatusOK, h.weather.GetWeather(c.Request().Context(), lat, lon))
}

// recommendCrops ranks three crops for the submitted soil test.
//
// @Summary      Recommend crops
// @Description  Always returns exactly three items. Weather is looked up from lat/lon when not supplied.
// @Tags         advisory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RecommendationRequest  true  "Soil test, location and month"
// @Success      200      {object}  RecommendationResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /recommendations [post]
func (h *Handler) recommendCrops(c echo.Context) error {
	var req RecommendationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	session := sessionFrom(c)
	language, errResp := requestLanguage(req.Language, session)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	ctx := c.Request().Context()
	weather := entities.DefaultWeather()
	switch {
	case req.Weather != nil:
		weather = *req.Weather
	case req.Lat != nil && req.Lon != nil:
		weather = h.weather.GetWeather(ctx, *req.Lat, *req.Lon)
	}

	result := h.recommendation.RankCrops(ctx, usecase.RecommendationRequest{
		Soil:    req.Soil,
		Weather: weather,
		Location: entities.Location{
			State:    req.State,
			District: req.District,
			Month:    req.Month,
		},
		Language: language,
	})

	return c.JSON(http.StatusOK, RecommendationResponse{
		Items:     result.Items[:],
		Weather:   weather,
		AudioText: result.AudioText,
		Audio:     result.Audio,
		Source:    result.Source,
	})
}

func (h *Handler) cropGuide(c echo.Context) error {
	var req GuideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if strings.TrimSpace(req.Crop) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Crop is required",
		})
	}

	session := sessionFrom(c)
	language, errResp := requestLanguage(req.Language, session)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	guide, err := h.recommendation.CropGuide(c.Request().Context(), usecase.GuideRequest{
		Crop: req.Crop,
		Location: entities.Location{
			State:    req.State,
			District: req.District,
			Month:    req.Month,
		},
		Language: language,
	})
	if err != nil {
		h.logger.Error("Failed to write crop guide",
			zap.String("sessionID", session.ID),
			zap.String("crop", req.Crop),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "completion_failed",
			Message: "The assistant is not reachable right now, please try again",
		})
	}

	return c.JSON(http.StatusOK, GuideResponse{
		Crop:      guide.Crop,
		Text:      guide.Text,
		Available: guide.Available,
		Audio:     guide.Audio,
	})
}

// detectDisease diagnoses a paddy leaf photo.
//
// @Summary  Detect paddy leaf disease
// @Tags     advisory
// @Accept   multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param    image     formData  file    true   "Leaf photo (jpg, png, webp)"
// @Param    language  formData  string  false  "Answer language"
// @Success  200       {object}  DiseaseResponse
// @Failure  400       {object}  ErrorResponse
// @Failure  503       {object}  ErrorResponse  "Disease model is not loaded"
// @Router   /disease/detect [post]
func (h *Handler) detectDisease(c echo.Context) error {
	session := sessionFrom(c)
	language, errResp := requestLanguage(c.FormValue("language"), session)
	if errResp != nil {
		return c.JSON(http.StatusBadRequest, errResp)
	}

	header, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Multipart field image is required",
		})
	}
	file, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_image",
			Message: "Uploaded image could not be opened",
		})
	}
	defer file.Close()

	report, err := h.disease.Detect(c.Request().Context(), file, language)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrClassifierUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "model_unavailable",
			Message: "Disease model is not loaded",
		})
	case errors.Is(err, usecase.ErrInvalidImage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_image",
			Message: "Image could not be read, upload a jpg, png or webp photo",
		})
	default:
		h.logger.Error("Disease detection failed",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "prediction_failed",
			Message: usecase.ErrPredictionFailed.Error(),
		})
	}

	return c.JSON(http.StatusOK, DiseaseResponse{
		Disease:   report.Diagnosis.Disease,
		Label:     report.Label,
		Severity:  report.Diagnosis.Severity,
		Healthy:   report.Diagnosis.Healthy(),
		Treatment: report.Treatment,
		Message:   report.Message,
		Audio:     report.Audio,
	})
}

// turnError maps chat turn failures onto HTTP responses
func (h *Handler) turnError(c echo.Context, session *entities.Session, err error) error {
	switch {
	case errors.Is(err, usecase.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_input",
			Message: "Message cannot be empty",
		})
	case errors.Is(err, usecase.ErrDuplicateVoice):
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "duplicate_voice",
			Message: "This recording was already sent",
		})
	case errors.Is(err, usecase.ErrSpeechNotRecognised):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "speech_not_recognised",
			Message: "Could not understand the audio, please try again",
		})
	case errors.Is(err, llm.ErrCompletionFailed):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "completion_failed",
			Message: "The assistant is not reachable right now, please try again",
		})
	}

	h.logger.Error("Chat turn failed",
		zap.String("sessionID", session.ID),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Failed to process message",
	})
}

// requestLanguage parses an explicit language or falls back to the session's
func requestLanguage(raw string, session *entities.Session) (entities.LanguageTag, *ErrorResponse) {
	if strings.TrimSpace(raw) == "" {
		return session.Language(), nil
	}
	language, err := entities.ParseLanguageTag(raw)
	if err != nil {
		return "", &ErrorResponse{Error: "unsupported_language", Message: err.Error()}
	}
	return language, nil
}

// readVoice returns the clip from the multipart field "audio" or the raw body
func readVoice(c echo.Context) ([]byte, string, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	mediaType, _, _ := mime.ParseMediaType(contentType)

	var (
		reader io.Reader
		closer io.Closer
	)
	if mediaType == echo.MIMEMultipartForm {
		header, err := c.FormFile("audio")
		if err != nil {
			return nil, "", errors.New("multipart field audio is required")
		}
		file, err := header.Open()
		if err != nil {
			return nil, "", errors.New("uploaded audio could not be opened")
		}
		reader, closer = file, file
		contentType = header.Header.Get(echo.HeaderContentType)
	} else {
		reader, closer = c.Request().Body, c.Request().Body
	}
	defer closer.Close()

	audio, err := io.ReadAll(io.LimitReader(reader, maxVoiceBytes+1))
	if err != nil {
		return nil, "", errors.New("reading audio failed")
	}
	if len(audio) > maxVoiceBytes {
		return nil, "", errors.New("audio clip is too large")
	}
	if len(audio) == 0 {
		return nil, "", errors.New("audio clip is empty")
	}
	return audio, contentType, nil
}

// encodingFromContentType names the speech encoding for an upload's media type
func encodingFromContentType(contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "audio/flac", "audio/x-flac":
		return "FLAC"
	case "audio/ogg":
		return "OGG_OPUS"
	case "audio/webm":
		return "WEBM_OPUS"
	case "audio/mpeg", "audio/mp3":
		return "MP3"
	default:
		return "WAV"
	}
}
