package storage

import (
	"database/sql"
	"strings"
	"time"
)

// MetadataRecord is a cached off-chain JSON document
type MetadataRecord struct {
	URL       string
	Hash      string
	Body      []byte
	FetchedAt time.Time
}

// SnapshotRecord is one raw ERC725Y value read from a contract
type SnapshotRecord struct {
	ID      int
	Address string
	DataKey string
	KeyName string
	Value   string // Hex-encoded raw value
	ReadAt  time.Time
}

// TransactionRecord tracks a write sent by one of the examples
type TransactionRecord struct {
	Hash        string
	Contract    string
	Method      string
	Status      string
	BlockNumber uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SaveMetadata saves or replaces a cached document
func (s *Store) SaveMetadata(record *MetadataRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata_cache (url, hash, body, fetched_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(url) DO UPDATE SET
			hash = excluded.hash,
			body = excluded.body,
			fetched_at = CURRENT_TIMESTAMP
	`, record.URL, record.Hash, record.Body)
	return err
}

// GetMetadata retrieves a cached document by URL
func (s *Store) GetMetadata(url string) (*MetadataRecord, error) {
	record := &MetadataRecord{}
	err := s.db.QueryRow(`
		SELECT url, hash, body, fetched_at FROM metadata_cache WHERE url = ?
	`, url).Scan(&record.URL, &record.Hash, &record.Body, &record.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// SaveSnapshot records a raw value read
func (s *Store) SaveSnapshot(record *SnapshotRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO data_snapshots (address, data_key, key_name, value)
		VALUES (?, ?, ?, ?)
	`, strings.ToLower(record.Address), strings.ToLower(record.DataKey), record.KeyName, record.Value)
	return err
}

// LatestSnapshot returns the most recent value read for a key
func (s *Store) LatestSnapshot(address, dataKey string) (*SnapshotRecord, error) {
	record := &SnapshotRecord{}
	err := s.db.QueryRow(`
		SELECT id, address, data_key, key_name, value, read_at
		FROM data_snapshots
		WHERE address = ? AND data_key = ?
		ORDER BY id DESC
		LIMIT 1
	`, strings.ToLower(address), strings.ToLower(dataKey)).Scan(
		&record.ID, &record.Address, &record.DataKey, &record.KeyName, &record.Value, &record.ReadAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// GetSnapshots retrieves all values read for a contract
func (s *Store) GetSnapshots(address string) ([]*SnapshotRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, address, data_key, key_name, value, read_at
		FROM data_snapshots WHERE address = ?
		ORDER BY id ASC
	`, strings.ToLower(address))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*SnapshotRecord
	for rows.Next() {
		record := &SnapshotRecord{}
		if err := rows.Scan(&record.ID, &record.Address, &record.DataKey, &record.KeyName, &record.Value, &record.ReadAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, record)
	}
	return snapshots, rows.Err()
}

// SaveTransaction saves or updates a transaction record
func (s *Store) SaveTransaction(record *TransactionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO transactions (hash, contract, method, status, block_number, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(hash) DO UPDATE SET
			status = excluded.status,
			block_number = excluded.block_number,
			updated_at = CURRENT_TIMESTAMP
	`, strings.ToLower(record.Hash), strings.ToLower(record.Contract), record.Method, record.Status, record.BlockNumber)
	return err
}

// GetTransaction retrieves a transaction record by hash
func (s *Store) GetTransaction(hash string) (*TransactionRecord, error) {
	record := &TransactionRecord{}
	var block sql.NullInt64
	err := s.db.QueryRow(`
		SELECT hash, contract, method, status, block_number, created_at, updated_at
		FROM transactions WHERE hash = ?
	`, strings.ToLower(hash)).Scan(
		&record.Hash, &record.Contract, &record.Method, &record.Status, &block,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record.BlockNumber = uint64(block.Int64)
	return record, nil
}

// GetTransactionCount returns the count of transactions by status
func (s *Store) GetTransactionCount(status string) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM transactions WHERE status = ?", status).Scan(&count)
	}
	return count, err
}
