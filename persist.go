package cryptofolio

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/harukit/cryptofolio/kvcache"
)

// The transaction log and the loaded-file list are persisted in the same
// key-value storage as the cache, but directly, outside the cache namespace:
// they are source data, not best-effort cache, and must never be evicted or
// expired.

// SaveTransactions stores the full transaction log under a single key as a
// JSON array. Unlike cache writes this is load bearing, so failures are
// returned to the caller.
func SaveTransactions(storage kvcache.Storage, txs []Transaction) error {
	payload, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("cannot marshal transaction log: %w", err)
	}
	if err := storage.Set(kvcache.TransactionLogKey, string(payload)); err != nil {
		return fmt.Errorf("cannot persist transaction log: %w", err)
	}
	return nil
}

// LoadTransactions reads the transaction log back. An absent log is an empty
// one; a corrupt log is an error, not a silent reset.
func LoadTransactions(storage kvcache.Storage) ([]Transaction, error) {
	raw, ok := storage.Get(kvcache.TransactionLogKey)
	if !ok {
		return nil, nil
	}
	var txs []Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		return nil, fmt.Errorf("corrupt transaction log: %w", err)
	}
	return txs, nil
}

// SaveLoadedFiles stores the list of imported CSV file names. The list is for
// display: it does not participate in any computation.
func SaveLoadedFiles(storage kvcache.Storage, files []string) error {
	payload, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("cannot marshal file list: %w", err)
	}
	if err := storage.Set(kvcache.LoadedFilesKey, string(payload)); err != nil {
		return fmt.Errorf("cannot persist file list: %w", err)
	}
	return nil
}

// LoadLoadedFiles reads the imported file names back, empty when absent.
func LoadLoadedFiles(storage kvcache.Storage) ([]string, error) {
	raw, ok := storage.Get(kvcache.LoadedFilesKey)
	if !ok {
		return nil, nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("corrupt file list: %w", err)
	}
	return files, nil
}

// RemoveFile filters out every transaction imported from the named file and
// returns the new log. The input is not mutated.
func RemoveFile(txs []Transaction, fileName string) []Transaction {
	kept := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.FileName != fileName {
			kept = append(kept, tx)
		}
	}
	return kept
}

// RecordLoadedFile appends a file name to the list if it is not there yet.
func RecordLoadedFile(files []string, fileName string) []string {
	if slices.Contains(files, fileName) {
		return files
	}
	return append(slices.Clone(files), fileName)
}
