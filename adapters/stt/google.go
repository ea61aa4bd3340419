package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/repositories"
)

// GoogleSpeechToText recognizes short voice clips with Google Cloud Speech-to-Text
type GoogleSpeechToText struct {
	client *speech.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates the Cloud Speech client. Credentials come from
// the usual application default credentials lookup.
func NewGoogleSpeechToText(ctx context.Context, logger *zap.Logger) (*GoogleSpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleSpeechToText{client: client, logger: logger}, nil
}

func (g *GoogleSpeechToText) Recognize(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return "", err
	}

	recognitionConfig := &speechpb.RecognitionConfig{
		Encoding:     encoding,
		LanguageCode: config.Language,
	}
	// WAV headers carry the rate; only raw encodings need it spelled out
	if config.SampleRate > 0 {
		recognitionConfig.SampleRateHertz = int32(config.SampleRate)
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audioData},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to recognize speech: %w", err)
	}

	transcript := joinTranscripts(resp.GetResults())
	if transcript == "" {
		return "", fmt.Errorf("no speech detected in audio")
	}

	g.logger.Debug("Recognized speech",
		zap.String("language", config.Language),
		zap.Int("audioBytes", len(audioData)),
		zap.Int("transcriptLength", len(transcript)))
	return transcript, nil
}

func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// joinTranscripts takes the best alternative of every result
func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	var parts []string
	for _, result := range results {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "":
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, nil
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
