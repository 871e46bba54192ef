// Package history keeps a log of coding transactions. Records are stored
// newest-last and queried newest-first, optionally filtered by VIN.
package history

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Types of logged transactions.
const (
	TypeCoding  = "coding"
	TypeUnlock  = "unlock"
	TypeReadout = "readout"
	TypeVehicle = "vehicle"
)

// Statuses of logged transactions.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Record is one logged transaction.
type Record struct {
	ID          string    `cbor:"id"`
	Type        string    `cbor:"type"`
	VIN         string    `cbor:"vin"`
	Vehicle     string    `cbor:"vehicle"`
	Description string    `cbor:"description"`
	Status      string    `cbor:"status"`
	Timestamp   time.Time `cbor:"timestamp"`
}

// NewRecord stamps a record with a fresh id and the current time.
func NewRecord(typ, vin, vehicle, description, status string) Record {
	return Record{
		ID:          newID(),
		Type:        typ,
		VIN:         vin,
		Vehicle:     vehicle,
		Description: description,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
}

func newID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b[:])
}

// Store persists transaction records.
type Store interface {
	// Append adds one record to the log.
	Append(rec Record) error
	// Query returns up to limit records, newest first. A non-empty vin
	// restricts the result to that vehicle. limit <= 0 means no limit.
	Query(vin string, limit int) ([]Record, error)
}

// filter applies the vin and limit rules to records held oldest-first.
func filter(recs []Record, vin string, limit int) []Record {
	var out []Record
	for i := len(recs) - 1; i >= 0; i-- {
		if vin != "" && recs[i].VIN != vin {
			continue
		}
		out = append(out, recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
