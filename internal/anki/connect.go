package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kpauljoseph/quizankify/pkg/logger"
	"github.com/kpauljoseph/quizankify/pkg/models"
)

const (
	DefaultAnkiConnectURL = "http://localhost:8765"

	// Anki's stock note type; every Anki profile ships with it.
	AnkiReversedModelName = "Basic (and reversed card)"
)

// ConnectClient pushes decks straight into a running Anki through the
// AnkiConnect add-on instead of writing a package file.
type ConnectClient struct {
	ankiConnectURL string
	client         *http.Client
	logger         *logger.Logger
}

type AnkiConnectRequest struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params"`
}

type Note struct {
	DeckName  string                 `json:"deckName"`
	ModelName string                 `json:"modelName"`
	Fields    map[string]string      `json:"fields"`
	Options   map[string]interface{} `json:"options"`
	Tags      []string               `json:"tags"`
}

func NewConnectClient(url string, logger *logger.Logger) *ConnectClient {
	if url == "" {
		url = DefaultAnkiConnectURL
	}
	return &ConnectClient{
		ankiConnectURL: url,
		client:         &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
	}
}

func (c *ConnectClient) CheckConnection(ctx context.Context) error {
	request := AnkiConnectRequest{
		Action:  "version",
		Version: ANKI_CONNECT_VERSION,
		Params:  map[string]interface{}{},
	}

	_, err := c.sendRequest(ctx, request)
	if err != nil {
		c.logger.Debug("Error sending request to Anki: %v", err)
		return fmt.Errorf("could not connect to Anki at %s. Please ensure:\n"+
			"1. Anki is running https://apps.ankiweb.net/#download\n"+
			"2. AnkiConnect add-on is installed (code: 2055492159) https://ankiweb.net/shared/info/2055492159\n"+
			"3. Anki has been restarted after installing AnkiConnect", c.ankiConnectURL)
	}

	return nil
}

func (c *ConnectClient) CreateDeck(ctx context.Context, deckName string) error {
	c.logger.Info("Creating deck: %s", deckName)
	request := AnkiConnectRequest{
		Action:  "createDeck",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]string{
			"deck": deckName,
		},
	}

	_, err := c.sendRequest(ctx, request)
	return err
}

// AddNotes adds one reversible note per pair to deckName in a single call.
// It returns the number of notes Anki accepted; notes it rejects, such as
// duplicates already in the deck, are counted as skipped.
func (c *ConnectClient) AddNotes(ctx context.Context, deckName string, pairs []models.TermPair) (int, error) {
	tag := getDeckNameUnderscoreSeparatedForTag(deckName)
	notes := make([]Note, 0, len(pairs))
	for i, pair := range pairs {
		if !pair.Valid() {
			return 0, fmt.Errorf("%w: pair %d has an empty side", ErrInvalidCard, i)
		}
		notes = append(notes, Note{
			DeckName:  deckName,
			ModelName: AnkiReversedModelName,
			Fields: map[string]string{
				"Front": pair.Term,
				"Back":  pair.Definition,
			},
			Options: map[string]interface{}{
				"allowDuplicate": false,
				"duplicateScope": "deck",
			},
			Tags: []string{QuizankifyTag, tag},
		})
	}

	request := AnkiConnectRequest{
		Action:  "addNotes",
		Version: ANKI_CONNECT_VERSION,
		Params: map[string]interface{}{
			"notes": notes,
		},
	}

	result, err := c.sendRequest(ctx, request)
	if err != nil {
		return 0, fmt.Errorf("failed to add notes: %w", err)
	}

	var noteIDs []*int64
	if err := json.Unmarshal(result, &noteIDs); err != nil {
		return 0, fmt.Errorf("failed to parse note IDs: %w", err)
	}

	var added int
	for i, id := range noteIDs {
		if id == nil {
			c.logger.Debug("Skipped note %d (%q), likely a duplicate", i, pairs[i].Term)
			continue
		}
		added++
	}

	c.logger.Debug("Added %d of %d notes to %s", added, len(pairs), deckName)
	return added, nil
}

func (c *ConnectClient) sendRequest(ctx context.Context, req AnkiConnectRequest) (json.RawMessage, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ankiConnectURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result struct {
		Error  *string         `json:"error"`
		Result json.RawMessage `json:"result"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error != nil {
		return nil, fmt.Errorf("anki error: %s", *result.Error)
	}

	return result.Result, nil
}
