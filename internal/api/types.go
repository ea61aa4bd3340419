package api

import (
	"time"

	"github.com/satriahrh/agribot/domain/entities"
)

// CreateSessionRequest represents the request payload for opening a session
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// CreateSessionResponse carries the bearer token for the new session
type CreateSessionResponse struct {
	SessionID string               `json:"session_id"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Language  entities.LanguageTag `json:"language"`
}

type SetLanguageRequest struct {
	Language string `json:"language"`
}

type SetLanguageResponse struct {
	SessionID string               `json:"session_id"`
	Language  entities.LanguageTag `json:"language"`
}

// ChatMessageRequest represents a typed chat turn
type ChatMessageRequest struct {
	Text string `json:"text"`
}

// RecommendationRequest represents the crop recommender form. Weather is
// looked up from Lat/Lon when not supplied.
type RecommendationRequest struct {
	Soil     entities.SoilParams      `json:"soil"`
	Weather  *entities.WeatherReading `json:"weather,omitempty"`
	Lat      *float64                 `json:"lat,omitempty"`
	Lon      *float64                 `json:"lon,omitempty"`
	State    string                   `json:"state"`
	District string                   `json:"district"`
	Month    string                   `json:"month"`
	Language string                   `json:"language,omitempty"`
}

type RecommendationResponse struct {
	Items     []entities.RecommendationItem `json:"items"`
	Weather   entities.WeatherReading       `json:"weather"`
	AudioText string                        `json:"audio_text"`
	Audio     []byte                        `json:"audio,omitempty"`
	Source    string                        `json:"source"`
}

type GuideRequest struct {
	Crop     string `json:"crop"`
	State    string `json:"state"`
	District string `json:"district"`
	Month    string `json:"month"`
	Language string `json:"language,omitempty"`
}

type GuideResponse struct {
	Crop      string `json:"crop"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
	Audio     []byte `json:"audio,omitempty"`
}

// DiseaseResponse is the result of a leaf scan
type DiseaseResponse struct {
	Disease   string   `json:"disease"`
	Label     string   `json:"label"`
	Severity  float64  `json:"severity"`
	Healthy   bool     `json:"healthy"`
	Treatment []string `json:"treatment,omitempty"`
	Message   string   `json:"message,omitempty"`
	Audio     []byte   `json:"audio,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
