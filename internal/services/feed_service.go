package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// FeedMarket is one market record in the external feed payload.
// End times come over the wire as unix timestamps with fractional seconds.
type FeedMarket struct {
	EventID     string  `json:"event_id"`
	Description string  `json:"description"`
	EndTime     float64 `json:"end_time"`
}

type feedResponse struct {
	Markets []FeedMarket `json:"markets"`
}

// FeedService populates the market catalog from the external market feed.
// The feed owns descriptions and deadlines; volumes and lifecycle state are
// owned here and never overwritten by a sync.
type FeedService struct {
	db      *gorm.DB
	baseURL string
	client  *http.Client
}

// NewFeedService creates a new FeedService
func NewFeedService(db *gorm.DB, baseURL string) *FeedService {
	return &FeedService{
		db:      db,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SyncMarkets fetches the feed and upserts the catalog.
func (s *FeedService) SyncMarkets(ctx context.Context) error {
	markets, err := s.fetchMarkets(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch market feed: %w", err)
	}

	stored := 0
	for _, feedMarket := range markets {
		if feedMarket.EventID == "" {
			continue
		}
		if err := s.storeMarket(feedMarket); err != nil {
			log.Printf("Failed to store market %s: %v", feedMarket.EventID, err)
			continue
		}
		stored++
	}

	log.Printf("Market feed sync completed: %d/%d markets stored", stored, len(markets))
	return nil
}

func (s *FeedService) fetchMarkets(ctx context.Context) ([]FeedMarket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/markets", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode feed response: %w", err)
	}
	return payload.Markets, nil
}

// storeMarket upserts a single feed record. Existing markets only get their
// description and deadline refreshed while still active.
func (s *FeedService) storeMarket(feedMarket FeedMarket) error {
	endTime := time.Unix(int64(feedMarket.EndTime), 0).UTC()

	var existing models.Market
	err := s.db.Where("event_id = ?", feedMarket.EventID).First(&existing).Error
	if err == nil {
		if existing.Status != models.MarketStatusActive {
			return nil
		}
		return s.db.Model(&existing).Updates(map[string]interface{}{
			"description": feedMarket.Description,
			"end_time":    endTime,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	market := models.Market{
		EventID:     feedMarket.EventID,
		Description: feedMarket.Description,
		EndTime:     endTime,
		Status:      models.MarketStatusActive,
	}
	return s.db.Create(&market).Error
}
