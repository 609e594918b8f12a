package storage

import (
	"context"
	"errors"
	"moex-scraper/internal/moex"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecords(days ...int) []moex.IndexRecord {
	records := make([]moex.IndexRecord, len(days))
	for i, d := range days {
		base := float64(3000 + d)
		records[i] = moex.IndexRecord{
			Date:           day(d),
			PriceAtOpening: base + 0.25,
			MaxPrice:       base + 10.5,
			MinPrice:       base - 10.75,
			PriceAtClosure: base + 1.125,
			VolumeOfTrade:  95458726584.11,
			Capitalization: base*1e9 + 0.5,
		}
	}
	return records
}

func requireRecords(t testing.TB, expected, actual []moex.IndexRecord) {
	t.Helper()
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func requireNotFound(t testing.TB, err error, location string) {
	t.Helper()
	var notFound LocationNotFoundError
	require.True(t, errors.As(err, &notFound), "expected LocationNotFoundError, got %v", err)
	require.Equal(t, location, notFound.Location)
}

// runBackendContract checks the behavior every backend must share.
func runBackendContract(t *testing.T, backend Backend) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	recordsA := sampleRecords(26, 25, 24, 21, 20)
	recordsB := sampleRecords(3, 4)

	t.Run("read missing", func(t *testing.T) {
		err := WithSession(ctx, backend, func(s Session) error {
			records, err := s.Read(ctx, "NEVER_WRITTEN")
			require.Nil(t, records)
			requireNotFound(t, err, "NEVER_WRITTEN")
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("full replace", func(t *testing.T) {
		location := "IMOEX#from=2025-01-26&till=2025-02-26&sort=TRADEDATE&order=desc"
		err := WithSession(ctx, backend, func(s Session) error {
			require.NoError(t, s.Write(ctx, location, recordsA))
			records, err := s.Read(ctx, location)
			require.NoError(t, err)
			requireRecords(t, recordsA, records)

			require.NoError(t, s.Write(ctx, location, recordsB))
			records, err = s.Read(ctx, location)
			require.NoError(t, err)
			requireRecords(t, recordsB, records)
			return nil
		})
		require.NoError(t, err)

		// a new session sees the last write
		err = WithSession(ctx, backend, func(s Session) error {
			records, err := s.Read(ctx, location)
			require.NoError(t, err)
			requireRecords(t, recordsB, records)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("locations are independent", func(t *testing.T) {
		err := WithSession(ctx, backend, func(s Session) error {
			require.NoError(t, s.Write(ctx, "RTSI", recordsA))
			require.NoError(t, s.Write(ctx, "MOEXBC", recordsB))
			require.NoError(t, s.Write(ctx, "RTSI", recordsA[:2]))

			rtsi, err := s.Read(ctx, "RTSI")
			require.NoError(t, err)
			requireRecords(t, recordsA[:2], rtsi)

			moexbc, err := s.Read(ctx, "MOEXBC")
			require.NoError(t, err)
			requireRecords(t, recordsB, moexbc)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("empty record set", func(t *testing.T) {
		err := WithSession(ctx, backend, func(s Session) error {
			require.NoError(t, s.Write(ctx, "EMPTY", recordsA))
			require.NoError(t, s.Write(ctx, "EMPTY", nil))
			records, err := s.Read(ctx, "EMPTY")
			require.NoError(t, err)
			require.Len(t, records, 0)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("invalid location", func(t *testing.T) {
		err := WithSession(ctx, backend, func(s Session) error {
			for _, location := range []string{"", "..", "a/b", `a\b`} {
				require.ErrorIs(t, s.Write(ctx, location, recordsA), ErrInvalidLocation, location)
				_, err := s.Read(ctx, location)
				require.ErrorIs(t, err, ErrInvalidLocation, location)
			}
			return nil
		})
		require.NoError(t, err)
	})
}
