package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/logboard/api/internal/config"
	"github.com/logboard/api/internal/model"
	"github.com/logboard/api/internal/parser"
	"github.com/logboard/api/internal/service"
	"github.com/logboard/api/internal/store"
	"github.com/logboard/api/internal/websocket"
)

// LogWorker processes log-ingestion jobs: it streams the uploaded
// file, drives the parser over it line by line, persists the terminal
// record and reports progress through the hub.
type LogWorker struct {
	ingest     *service.IngestService
	store      store.StatsStore
	hub        *websocket.Hub
	httpClient *http.Client

	keywords   []string
	batchLines int
}

// NewLogWorker creates a new log-ingestion worker
func NewLogWorker(ingest *service.IngestService, statsStore store.StatsStore, hub *websocket.Hub, cfg *config.IngestConfig) *LogWorker {
	batch := cfg.ProgressBatchLines
	if batch <= 0 {
		batch = 100
	}
	return &LogWorker{
		ingest:     ingest,
		store:      statsStore,
		hub:        hub,
		httpClient: &http.Client{},
		keywords:   cfg.WatchKeywords,
		batchLines: batch,
	}
}

// ProcessTask handles one attempt of a log-processing job
func (w *LogWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.LogJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Starting log job %s (%s)", payload.JobID, payload.FileID)

	if err := w.ingest.MarkActive(ctx, payload.JobID); err != nil {
		log.Printf("Failed to mark job %s active: %v", payload.JobID, err)
	}

	p := parser.New(w.keywords)
	if err := w.process(ctx, &payload, p); err != nil {
		w.failJob(ctx, &payload, p, err)
		return err
	}

	if err := w.ingest.MarkCompleted(ctx, payload.JobID, p.TotalLines(), p.ErrorCount()); err != nil {
		log.Printf("Failed to mark job %s completed: %v", payload.JobID, err)
	}
	log.Printf("Log job %s completed: %d lines, %d errors", payload.JobID, p.TotalLines(), p.ErrorCount())
	return nil
}

// process streams the file through the parser and persists the
// completed record. The terminal record is written before the
// completion event is broadcast, so clients reacting to the event
// see consistent stats.
func (w *LogWorker) process(ctx context.Context, payload *model.LogJobPayload, p *parser.Parser) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.FileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch log file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch log file: status %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)
	sinceFlush := 0
	for {
		line, ok, err := readLine(reader)
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed reading log stream: %w", err)
		}
		if ok {
			p.ConsumeLine(line)
			sinceFlush++
			if sinceFlush >= w.batchLines {
				w.reportProgress(ctx, payload.JobID, p, model.ParseStatusProcessing, "")
				sinceFlush = 0
			}
		}
		if err == io.EOF {
			break
		}
	}

	result := p.Result(model.ParseStatusCompleted)
	record := &model.LogRecord{
		JobID:        payload.JobID,
		FileID:       payload.FileID,
		UserID:       payload.UserID,
		JobCreatedAt: payload.EnqueuedAt,
		ProcessedAt:  time.Now(),
		TotalLines:   result.TotalLines,
		ErrorCount:   result.ErrorCount,
		Errors:       result.Errors,
		Keywords:     result.Keywords,
		IPs:          result.IPs,
		Status:       model.RecordStatusCompleted,
	}

	if err := w.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}

	w.reportProgress(ctx, payload.JobID, p, model.ParseStatusCompleted, "")
	w.hub.BroadcastCompleted(payload.JobID, record)
	return nil
}

// failJob persists the failed stub, emits the error event and moves
// the job record to its post-attempt state. Runs once per failed
// attempt; the queue's retry policy decides what happens next.
func (w *LogWorker) failJob(ctx context.Context, payload *model.LogJobPayload, p *parser.Parser, cause error) {
	stub := &model.LogRecord{
		JobID:        payload.JobID,
		FileID:       payload.FileID,
		UserID:       payload.UserID,
		JobCreatedAt: payload.EnqueuedAt,
		ProcessedAt:  time.Now(),
		Errors:       []model.LogError{},
		Keywords:     []model.KeywordHit{},
		IPs:          []string{},
		Status:       model.RecordStatusFailed,
	}
	if err := w.store.Insert(ctx, stub); err != nil {
		log.Printf("Failed to persist failure stub for job %s: %v", payload.JobID, err)
	}

	w.reportProgress(ctx, payload.JobID, p, model.ParseStatusError, cause.Error())

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	final := retried >= maxRetry
	if err := w.ingest.MarkFailed(ctx, payload.JobID, cause.Error(), final); err != nil {
		log.Printf("Failed to mark job %s failed: %v", payload.JobID, err)
	}
	log.Printf("Log job %s failed (attempt %d of %d): %v", payload.JobID, retried+1, maxRetry+1, cause)
}

func (w *LogWorker) reportProgress(ctx context.Context, jobID string, p *parser.Parser, status model.ParseStatus, errMsg string) {
	if err := w.ingest.UpdateProgress(ctx, jobID, p.TotalLines(), p.ErrorCount()); err != nil {
		log.Printf("Failed to update progress for job %s: %v", jobID, err)
	}
	w.hub.BroadcastProgress(jobID, model.ProgressPayload{
		ProcessedLines: p.TotalLines(),
		Errors:         p.ErrorCount(),
		Status:         status,
		ErrorMessage:   errMsg,
	})
}

// readLine reads one logical line, tolerating lines past the parser's
// length bound: the overflow is discarded but the line still counts.
// ok reports whether a line was read; err is io.EOF at end of input.
func readLine(r *bufio.Reader) (string, bool, error) {
	var buf []byte
	truncated := false
	for {
		chunk, err := r.ReadSlice('\n')
		if len(chunk) > 0 && !truncated {
			buf = append(buf, chunk...)
			if len(buf) > parser.MaxLineLen {
				buf = buf[:parser.MaxLineLen+1]
				truncated = true
			}
		}
		switch err {
		case bufio.ErrBufferFull:
			continue
		case nil:
			return trimLine(buf), true, nil
		case io.EOF:
			if len(buf) == 0 {
				return "", false, io.EOF
			}
			return trimLine(buf), true, io.EOF
		default:
			return "", false, err
		}
	}
}

func trimLine(buf []byte) string {
	return strings.TrimRight(string(buf), "\r\n")
}
