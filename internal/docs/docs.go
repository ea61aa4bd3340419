// Package docs registers the agribot OpenAPI document with swag.
// Regenerate with: swag init -g cmd/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/sessions": {
            "post": {
                "tags": ["sessions"],
                "summary": "Open a session",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/api.CreateSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/api.CreateSessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/sessions/language": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["sessions"],
                "summary": "Change the display language",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.SetLanguageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SetLanguageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/chat/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "List chat history",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ConversationMessage"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "Send a chat message",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.ChatMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ChatReply"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "502": {"description": "Completion service failed after all retries", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "Clear history, audio and the last voice clip",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/chat/voice": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "Send a voice message",
                "consumes": ["audio/wav", "multipart/form-data"],
                "parameters": [
                    {"type": "string", "in": "query", "name": "encoding"},
                    {"type": "integer", "in": "query", "name": "sample_rate"},
                    {"type": "string", "in": "query", "name": "language"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ChatReply"}},
                    "409": {"description": "Same clip as the previous voice message", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "422": {"description": "Speech not recognised", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/chat/messages/{id}/audio": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["chat"],
                "summary": "Cached narration for a message",
                "produces": ["audio/mpeg"],
                "parameters": [{"type": "string", "in": "path", "name": "id", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/weather": {
            "get": {
                "tags": ["advisory"],
                "summary": "Current weather",
                "parameters": [
                    {"type": "number", "in": "query", "name": "lat", "required": true},
                    {"type": "number", "in": "query", "name": "lon", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/entities.WeatherReading"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/recommendations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["advisory"],
                "summary": "Recommend crops",
                "description": "Always returns exactly three items.",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.RecommendationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecommendationResponse"}}
                }
            }
        },
        "/recommendations/guide": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["advisory"],
                "summary": "Growing guide for one crop",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.GuideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.GuideResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/disease/detect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["advisory"],
                "summary": "Detect paddy leaf disease",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "file", "in": "formData", "name": "image", "required": true},
                    {"type": "string", "in": "formData", "name": "language"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DiseaseResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "503": {"description": "Disease model is not loaded", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "message": {"type": "string"}}
        },
        "api.CreateSessionRequest": {
            "type": "object",
            "properties": {"language": {"type": "string", "example": "kn"}}
        },
        "api.CreateSessionResponse": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "language": {"type": "string"}
            }
        },
        "api.SetLanguageRequest": {
            "type": "object",
            "properties": {"language": {"type": "string"}}
        },
        "api.SetLanguageResponse": {
            "type": "object",
            "properties": {"session_id": {"type": "string"}, "language": {"type": "string"}}
        },
        "api.ChatMessageRequest": {
            "type": "object",
            "properties": {"text": {"type": "string"}}
        },
        "api.RecommendationRequest": {
            "type": "object",
            "properties": {
                "soil": {"$ref": "#/definitions/entities.SoilParams"},
                "weather": {"$ref": "#/definitions/entities.WeatherReading"},
                "lat": {"type": "number"},
                "lon": {"type": "number"},
                "state": {"type": "string"},
                "district": {"type": "string"},
                "month": {"type": "string"},
                "language": {"type": "string"}
            }
        },
        "api.RecommendationResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/entities.RecommendationItem"}},
                "weather": {"$ref": "#/definitions/entities.WeatherReading"},
                "audio_text": {"type": "string"},
                "audio": {"type": "string", "format": "byte"},
                "source": {"type": "string"}
            }
        },
        "api.GuideRequest": {
            "type": "object",
            "properties": {
                "crop": {"type": "string"},
                "state": {"type": "string"},
                "district": {"type": "string"},
                "month": {"type": "string"},
                "language": {"type": "string"}
            }
        },
        "api.GuideResponse": {
            "type": "object",
            "properties": {
                "crop": {"type": "string"},
                "text": {"type": "string"},
                "available": {"type": "boolean"},
                "audio": {"type": "string", "format": "byte"}
            }
        },
        "api.DiseaseResponse": {
            "type": "object",
            "properties": {
                "disease": {"type": "string"},
                "label": {"type": "string"},
                "severity": {"type": "number"},
                "healthy": {"type": "boolean"},
                "treatment": {"type": "array", "items": {"type": "string"}},
                "message": {"type": "string"},
                "audio": {"type": "string", "format": "byte"}
            }
        },
        "domain.ChatReply": {
            "type": "object",
            "properties": {
                "session_id": {"type": "string"},
                "user_message": {"$ref": "#/definitions/entities.Message"},
                "assistant_message": {"$ref": "#/definitions/entities.Message"},
                "original_language": {"type": "string"},
                "has_audio": {"type": "boolean"},
                "audio": {"type": "string", "format": "byte"},
                "error": {"type": "string"}
            }
        },
        "domain.ConversationMessage": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "role": {"type": "string"},
                "content": {"type": "string"},
                "canonical_content": {"type": "string"},
                "language": {"type": "string"},
                "sequence_index": {"type": "integer"},
                "timestamp": {"type": "string"},
                "has_audio": {"type": "boolean"}
            }
        },
        "entities.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "role": {"type": "string"},
                "content": {"type": "string"},
                "canonical_content": {"type": "string"},
                "language": {"type": "string"},
                "sequence_index": {"type": "integer"},
                "timestamp": {"type": "string"}
            }
        },
        "entities.RecommendationItem": {
            "type": "object",
            "properties": {
                "rank": {"type": "integer"},
                "label": {"type": "string"},
                "rationale": {"type": "string"},
                "kind": {"type": "string", "enum": ["parsed", "placeholder"]}
            }
        },
        "entities.SoilParams": {
            "type": "object",
            "properties": {
                "nitrogen": {"type": "number"},
                "phosphorus": {"type": "number"},
                "potassium": {"type": "number"},
                "ph": {"type": "number"}
            }
        },
        "entities.WeatherReading": {
            "type": "object",
            "properties": {
                "temp": {"type": "number"},
                "humidity": {"type": "number"},
                "rainfall": {"type": "number"},
                "desc": {"type": "string"},
                "icon": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "AgriBot API",
	Description:      "Bilingual (English/Kannada) farming assistant: chat, crop recommendation and paddy disease detection.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
