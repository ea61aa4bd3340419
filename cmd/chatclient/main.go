// Command chatclient is a terminal client for the agribot websocket endpoint.
//
// Lines typed on stdin are sent as chat messages. "/voice <file>" sends a
// recorded clip, "/lang <en|kn>" switches the reply language, "/clear" drops
// the conversation. Narrated replies are saved under -audio-dir.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

type createSessionResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Language  string    `json:"language"`
}

type messageContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type chatReply struct {
	UserMessage      *messageContent `json:"user_message"`
	AssistantMessage *messageContent `json:"assistant_message"`
	OriginalLanguage string          `json:"original_language"`
	Audio            []byte          `json:"audio"`
}

type serverMessage struct {
	Type      string    `json:"type"`
	MessageID string    `json:"message_id"`
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	Language  string    `json:"language"`
	Reply     chatReply `json:"reply"`
}

func main() {
	host := flag.String("host", "localhost:8080", "agribot server address")
	language := flag.String("lang", "en", "initial reply language (en or kn)")
	audioDir := flag.String("audio-dir", "audio_responses", "where narrated replies are written")
	flag.Parse()

	session, err := createSession(*host, *language)
	if err != nil {
		log.Fatal("Failed to create session:", err)
	}
	log.Printf("Session %s created, token expires at %s", session.SessionID, session.ExpiresAt.Format(time.RFC3339))

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+session.Token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})
	go handleIncomingMessage(c, *audioDir, done)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	counter := 0
	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				closeConnection(c, done)
				return
			}
			counter++
			if err := send(c, strings.TrimSpace(line), fmt.Sprintf("m-%d", counter)); err != nil {
				log.Println("send:", err)
			}
		case <-interrupt:
			log.Println("interrupt")
			closeConnection(c, done)
			return
		}
	}
}

func createSession(host, language string) (*createSessionResponse, error) {
	var session createSessionResponse
	resp, err := resty.New().
		SetTimeout(10 * time.Second).
		R().
		SetBody(map[string]string{"language": language}).
		SetResult(&session).
		Post("http://" + host + "/api/v1/sessions")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, fmt.Errorf("session request failed: %s", resp.String())
	}
	return &session, nil
}

func send(c *websocket.Conn, line, messageID string) error {
	switch {
	case line == "":
		return nil
	case line == "/clear":
		return sendJSONMessage(c, map[string]interface{}{"type": "clear", "message_id": messageID})
	case strings.HasPrefix(line, "/lang "):
		return sendJSONMessage(c, map[string]interface{}{
			"type":       "language",
			"language":   strings.TrimSpace(strings.TrimPrefix(line, "/lang ")),
			"message_id": messageID,
		})
	case strings.HasPrefix(line, "/voice "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/voice "))
		audio, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		config := map[string]interface{}{"type": "audio_config", "encoding": encodingFromPath(path)}
		if err := sendJSONMessage(c, config); err != nil {
			return err
		}
		log.Printf("Sending voice clip %s (%d bytes)", path, len(audio))
		return c.WriteMessage(websocket.BinaryMessage, audio)
	default:
		return sendJSONMessage(c, map[string]interface{}{"type": "chat", "text": line, "message_id": messageID})
	}
}

func encodingFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return "FLAC"
	case ".ogg", ".opus":
		return "OGG_OPUS"
	case ".webm":
		return "WEBM_OPUS"
	case ".mp3":
		return "MP3"
	}
	return "WAV"
}

func sendJSONMessage(c *websocket.Conn, message map[string]interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func closeConnection(c *websocket.Conn, done chan struct{}) {
	// Cleanly close the connection by sending a close message and then
	// waiting (with timeout) for the server to close the connection.
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("write close:", err)
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func handleIncomingMessage(c *websocket.Conn, audioDir string, done chan struct{}) {
	defer close(done)

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("unmarshal error:", err)
			continue
		}

		switch msg.Type {
		case "assistant_reply":
			if msg.Reply.UserMessage != nil {
				fmt.Printf("you (%s): %s\n", msg.Reply.OriginalLanguage, msg.Reply.UserMessage.Content)
			}
			if msg.Reply.AssistantMessage == nil {
				continue
			}
			fmt.Printf("agribot: %s\n", msg.Reply.AssistantMessage.Content)
			if len(msg.Reply.Audio) > 0 {
				saveAudio(audioDir, msg.Reply.AssistantMessage.ID, msg.Reply.Audio)
			}
		case "language_set":
			log.Printf("Reply language set to %s", msg.Language)
		case "cleared":
			log.Println("Conversation cleared")
		case "error":
			log.Printf("error %s: %s", msg.ErrorCode, msg.Message)
		default:
			log.Printf("Received message: %s", string(message))
		}
	}
}

func saveAudio(dir, messageID string, audio []byte) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Error creating audio directory: %v", err)
		return
	}
	path := filepath.Join(dir, messageID+".mp3")
	if err := os.WriteFile(path, audio, 0644); err != nil {
		log.Printf("Error writing audio: %v", err)
		return
	}
	log.Printf("Saved narration to %s", path)
}
