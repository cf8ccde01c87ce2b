package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikegpl/lwm2m-go/pkg/log"
	"github.com/mikegpl/lwm2m-go/pkg/wire"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output       string
	Endpoint     string
	TimeStart    string
	TimeEnd      string
	Layer        string
	Direction    string
	Category     string
	Method       string
	FailuresOnly bool
}

// BuildFilter turns string options into a log.Filter.
func (opts FilterOptions) BuildFilter() (log.Filter, error) {
	filter := log.Filter{
		Endpoint:     opts.Endpoint,
		FailuresOnly: opts.FailuresOnly,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Layer != "" {
		l, err := ParseLayerFlag(opts.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}

	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}

	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	if opts.Method != "" {
		m, err := parseMethod(opts.Method)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Method = &m
	}

	return filter, nil
}

func parseMethod(s string) (wire.Method, error) {
	switch strings.ToUpper(s) {
	case "GET":
		return wire.MethodGet, nil
	case "POST":
		return wire.MethodPost, nil
	case "PUT":
		return wire.MethodPut, nil
	case "DELETE":
		return wire.MethodDelete, nil
	default:
		return 0, fmt.Errorf("invalid method: %s (must be GET, POST, PUT, or DELETE)", s)
	}
}

// RunFilter filters the log file and writes matching events to a new file.
// It returns the number of events written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.BuildFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}

	return count, nil
}
