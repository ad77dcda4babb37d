package model

import "github.com/xxxsen/formpilot/internal/form"

// FormInput is a form together with the domain it belongs to.
type FormInput struct {
	Domain string    `json:"domain"`
	Form   *form.Map `json:"form"`
}

// RawRecord is the stored copy of an ingested form.
type RawRecord struct {
	ID        string    `json:"id"`
	ObjectID  string    `json:"objectId"`
	Domain    string    `json:"domain"`
	Form      *form.Map `json:"form"`
	Timestamp int64     `json:"timestamp"`
}

// VectorEntry is one embedded chunk of a record.
type VectorEntry struct {
	ID        string    `json:"id"`
	ObjectID  string    `json:"objectId"`
	Domain    string    `json:"domain"`
	Embedding []float32 `json:"-"`
	Timestamp int64     `json:"timestamp"`
}

type VectorMatch struct {
	ObjectID    string
	TimestampMs int64
	Distance    float64
}

type RankedCandidate struct {
	ObjectID        string  `json:"objectId"`
	Timestamp       int64   `json:"timestamp"`
	ChunkMatchScore float64 `json:"chunkMatchScore"`
	TimestampScore  float64 `json:"timestampScore"`
	TotalScore      float64 `json:"totalScore"`
}
