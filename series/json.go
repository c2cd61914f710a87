package series

import (
	"encoding/json"
	"fmt"
	"time"
)

type pointJSON struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// MarshalJSON renders the point as {"date":"2006-01-02","value":v|null}.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{
		Date:  p.Date.Format(DateFormat),
		Value: p.Value,
	})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var pj pointJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	t, err := time.Parse(DateFormat, pj.Date)
	if err != nil {
		return fmt.Errorf("parse point date: %w", err)
	}
	p.Date = t
	p.Value = pj.Value
	return nil
}
