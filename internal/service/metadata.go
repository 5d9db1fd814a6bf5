package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/senseivictor/baza-de-date/internal/repository"
)

// DefaultTopFacts is the size of the top facts with metadata listing.
const DefaultTopFacts = 100

// MetadataDetails are the well-known keys of an order's metadata object.
type MetadataDetails struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Source  string `json:"source"`
}

// ParseMetadata decodes the raw metadata text of a fact.  parsed is nil
// when raw is not JSON; details is nil unless raw is a JSON object, and
// missing keys fall back to "unknown" (browser, os) and "direct" (source).
func ParseMetadata(raw string) (parsed json.RawMessage, details *MetadataDetails) {
	if !json.Valid([]byte(raw)) {
		return nil, nil
	}
	parsed = json.RawMessage(raw)
	var obj map[string]any
	if err := json.Unmarshal(parsed, &obj); err != nil || obj == nil {
		return parsed, nil
	}
	text := func(key, def string) string {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
		return def
	}
	return parsed, &MetadataDetails{
		Browser: text("browser", "unknown"),
		OS:      text("os", "unknown"),
		Source:  text("source", "direct"),
	}
}

// FactMetadata is a fact row with its metadata and the names of its
// product, client and region.
type FactMetadata struct {
	FactID      int64            `json:"fact_id"`
	OrderID     int64            `json:"order_id"`
	Date        string           `json:"date"`
	Product     string           `json:"product"`
	Client      *string          `json:"client"`
	Region      string           `json:"region"`
	SalesAmount decimal.Decimal  `json:"sales_amount"`
	Metadata    string           `json:"metadata"`
	Parsed      json.RawMessage  `json:"metadata_parsed,omitempty"`
	Details     *MetadataDetails `json:"details,omitempty"`
}

func factMetadata(f repository.FactDetail) FactMetadata {
	parsed, details := ParseMetadata(f.Metadata)
	return FactMetadata{
		FactID:      f.FactID,
		OrderID:     f.OrderID,
		Date:        repository.DateOf(f.TimeID).Format("02.01.2006"),
		Product:     f.Product,
		Client:      f.Client,
		Region:      f.Region,
		SalesAmount: f.SalesAmount,
		Metadata:    f.Metadata,
		Parsed:      parsed,
		Details:     details,
	}
}

// UserMetadataHistory is the metadata trail of the user with the most
// fact rows.
type UserMetadataHistory struct {
	UserID  int64             `json:"user_id"`
	Name    string            `json:"name"`
	Orders  int64             `json:"orders"`
	History []json.RawMessage `json:"history"`
}

// LatestOrderDetails returns the most recent fact carrying metadata.
func (w *WarehouseReports) LatestOrderDetails(ctx context.Context, rng *repository.TimeRange) (FactMetadata, error) {
	days, err := w.window(rng)
	if err != nil {
		return FactMetadata{}, err
	}
	f, err := repository.NewWarehouseRepo(w.Store).LatestFactWithMetadata(ctx, days)
	if errors.Is(err, sql.ErrNoRows) {
		return FactMetadata{}, repository.NotFound("no order with metadata in range")
	}
	if err != nil {
		return FactMetadata{}, err
	}
	return factMetadata(f), nil
}

// TopMetadataFacts lists facts carrying metadata by sales amount, largest
// first (DefaultTopFacts when top is 0).
func (w *WarehouseReports) TopMetadataFacts(ctx context.Context, top int, rng *repository.TimeRange) ([]FactMetadata, error) {
	if top == 0 {
		top = DefaultTopFacts
	}
	if top < 0 {
		return nil, repository.BadRequest("top must be positive")
	}
	days, err := w.window(rng)
	if err != nil {
		return nil, err
	}
	facts, err := repository.NewWarehouseRepo(w.Store).TopFactsWithMetadata(ctx, top, days)
	if err != nil {
		return nil, err
	}
	out := make([]FactMetadata, 0, len(facts))
	for _, f := range facts {
		out = append(out, factMetadata(f))
	}
	return out, nil
}

// TopUserHistory picks the user with the most fact rows overall and
// returns the metadata of their facts inside the window, oldest first.
// Entries that are not valid JSON are returned as JSON strings.
func (w *WarehouseReports) TopUserHistory(ctx context.Context, rng *repository.TimeRange) (UserMetadataHistory, error) {
	days, err := w.window(rng)
	if err != nil {
		return UserMetadataHistory{}, err
	}
	rows, err := w.Store.RunAggregate(ctx, repository.Aggregate{
		From:    "FactOrderItems",
		GroupBy: "user_id",
		Measure: repository.Count(),
		NotNull: []string{"user_id"},
		OrderBy: repository.ByCount,
		Desc:    true,
		Limit:   1,
	})
	if err != nil {
		return UserMetadataHistory{}, err
	}
	if len(rows) == 0 {
		return UserMetadataHistory{}, repository.NotFound("no registered user has orders in the warehouse")
	}
	wh := repository.NewWarehouseRepo(w.Store)
	userID := rows[0].KeyInt64()
	names, err := wh.UserNames(ctx, []int64{userID})
	if err != nil {
		return UserMetadataHistory{}, err
	}
	raw, err := wh.MetadataHistory(ctx, userID, days)
	if err != nil {
		return UserMetadataHistory{}, err
	}
	history := make([]json.RawMessage, 0, len(raw))
	for _, m := range raw {
		if parsed, _ := ParseMetadata(m); parsed != nil {
			history = append(history, parsed)
			continue
		}
		quoted, err := json.Marshal(m)
		if err != nil {
			return UserMetadataHistory{}, err
		}
		history = append(history, quoted)
	}
	return UserMetadataHistory{UserID: userID, Name: names[userID], Orders: rows[0].Count, History: history}, nil
}
