package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuncsValidateListsEveryMissingCapability(t *testing.T) {
	err := Funcs{}.Validate()
	var missing *MissingLoggerMethodError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"info", "error", "debug", "warn"}, missing.Missing)
	require.Contains(t, err.Error(), "info, error, debug, warn")

	err = Funcs{Info: func(...any) {}, Warn: func(...any) {}}.Validate()
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"error", "debug"}, missing.Missing)
}

func TestNewFuncsLoggerRejectsIncompleteSet(t *testing.T) {
	_, err := NewFuncsLogger(Funcs{Info: func(...any) {}})
	var missing *MissingLoggerMethodError
	require.ErrorAs(t, err, &missing)
}

func TestFuncsLoggerDispatchesByLevel(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	record := func(level string) func(...any) {
		return func(...any) {
			mu.Lock()
			calls[level]++
			mu.Unlock()
		}
	}

	logger, err := NewFuncsLogger(Funcs{
		Info:  record("info"),
		Error: record("error"),
		Debug: record("debug"),
		Warn:  record("warn"),
	})
	require.NoError(t, err)

	logger.Info().Msg("i")
	logger.Error().Msg("e")
	logger.Debug().Msg("d")
	logger.Warn().Msg("w")
	logger.Warn().Msg("w2")

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, map[string]int{"info": 1, "error": 1, "debug": 1, "warn": 2}, calls)
}
