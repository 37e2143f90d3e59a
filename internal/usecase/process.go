package usecase

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder for model output
	_ "image/jpeg" // register JPEG decoder for model output
	_ "image/png"  // register PNG decoder for model output
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register WebP decoder for model output

	"github.com/example/bg-remove/internal/compositor"
	"github.com/example/bg-remove/internal/logging"
	"github.com/example/bg-remove/internal/repository"
	"github.com/example/bg-remove/internal/segmentation"
)

// ProcessingRepository defines the persistence operations needed by the use case.
type ProcessingRepository interface {
	SaveLog(ctx context.Context, log *repository.ProcessingLog) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.ProcessingLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Options are the per-request compositing choices, validated by the handler
// before the pipeline runs.
type Options struct {
	Filename   string
	Background compositor.Color
	AddShadow  bool
}

// ProcessUseCase runs the background-removal pipeline: segmentation, then
// shadow compositing, then background fill, then PNG encoding. The order is
// fixed; the shadow stencil needs the transparency a background fill would
// destroy.
type ProcessUseCase struct {
	repo           ProcessingRepository
	cache          Cache
	remover        segmentation.Remover
	logger         *zap.Logger
	maxDimension   int
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

type cachedJob struct {
	RequestID       string    `json:"request_id"`
	Filename        string    `json:"filename"`
	BackgroundColor string    `json:"background_color"`
	Shadow          bool      `json:"shadow"`
	OutputWidth     int       `json:"output_width"`
	OutputHeight    int       `json:"output_height"`
	DurationMs      int64     `json:"duration_ms"`
	Success         bool      `json:"success"`
	Details         string    `json:"details"`
	Hash            string    `json:"sha1_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewProcessUseCase constructs a new use case instance. maxDimension bounds
// the longest side of the decoded image before compositing; zero disables
// the clamp.
func NewProcessUseCase(repo ProcessingRepository, cache Cache, remover segmentation.Remover, maxDimension int, logger *zap.Logger) *ProcessUseCase {
	return &ProcessUseCase{
		repo:           repo,
		cache:          cache,
		remover:        remover,
		logger:         logger.Named("process_usecase"),
		maxDimension:   maxDimension,
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Process removes the background from data and applies the requested
// compositing. It returns the request id and the encoded PNG. All buffers
// are request-local and discarded once the response is written.
func (uc *ProcessUseCase) Process(ctx context.Context, opts Options, data []byte) (string, []byte, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.process", requestID)

	cacheKey := jobCacheKey(requestID)
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.processing", func() error {
		return uc.cache.Set(ctx, cacheKey, "processing", time.Minute)
	}); err != nil {
		opLogger.Error("failed to set processing flag", zap.Error(err))
		return "", nil, err
	}

	start := time.Now()
	png, width, height, err := uc.runPipeline(ctx, requestID, opts, data)
	duration := time.Since(start)

	hash := sha1.Sum(data)
	hashHex := hex.EncodeToString(hash[:])
	log := &repository.ProcessingLog{
		RequestID:       requestID,
		Filename:        opts.Filename,
		SizeBytes:       int64(len(data)),
		BackgroundColor: opts.Background.String(),
		Shadow:          opts.AddShadow,
		OutputWidth:     width,
		OutputHeight:    height,
		DurationMs:      duration.Milliseconds(),
		Success:         err == nil,
		SHA1Hash:        hashHex,
		CreatedAt:       time.Now().UTC(),
	}

	if err != nil {
		opLogger.Error("pipeline failed", zap.Error(err), zap.Duration("duration", duration))
		log.Details = err.Error()
		// Best effort: a failed request still leaves an audit row.
		if saveErr := uc.repo.SaveLog(ctx, log); saveErr != nil {
			opLogger.Warn("failed to persist failure log", zap.Error(saveErr))
		}
		return "", nil, err
	}

	log.Details = fmt.Sprintf("size:%d output:%dx%d shadow:%t color:%q hash:%s",
		log.SizeBytes, width, height, opts.AddShadow, opts.Background.String(), hashHex)
	if err := uc.repo.SaveLog(ctx, log); err != nil {
		wrapped := logging.NewOperationError("usecase.save_log", requestID, err)
		opLogger.Error("failed to persist processing log", zap.Error(wrapped))
		return "", nil, wrapped
	}

	cached := cachedJob{
		RequestID:       requestID,
		Filename:        log.Filename,
		BackgroundColor: log.BackgroundColor,
		Shadow:          log.Shadow,
		OutputWidth:     width,
		OutputHeight:    height,
		DurationMs:      log.DurationMs,
		Success:         true,
		Details:         log.Details,
		Hash:            hashHex,
		CreatedAt:       log.CreatedAt,
	}
	serialized, err := json.Marshal(cached)
	if err != nil {
		opLogger.Error("failed to serialize job metadata", zap.Error(err))
		return "", nil, err
	}
	if err := uc.withRedisRetry(ctx, requestID, "cache.set.result", func() error {
		return uc.cache.Set(ctx, cacheKey, string(serialized), 5*time.Minute)
	}); err != nil {
		opLogger.Error("failed to cache job metadata", zap.Error(err))
		return "", nil, err
	}

	opLogger.Info("request processed",
		zap.Int("output_width", width),
		zap.Int("output_height", height),
		zap.Duration("duration", duration))
	return requestID, png, nil
}

// runPipeline performs the fixed-order transformation stages and reports the
// output dimensions. Each stage failure is wrapped with its stage name.
func (uc *ProcessUseCase) runPipeline(ctx context.Context, requestID string, opts Options, data []byte) ([]byte, int, int, error) {
	removed, err := uc.remover.Remove(ctx, data)
	if err != nil {
		return nil, 0, 0, logging.NewOperationError("usecase.remove_background", requestID, err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(removed))
	if err != nil {
		return nil, 0, 0, logging.NewOperationError("usecase.decode_output", requestID, err)
	}

	img := imaging.Clone(decoded)
	img = compositor.FitWithin(img, uc.maxDimension)

	if opts.AddShadow {
		img = compositor.AddShadow(img)
	}

	final := compositor.ApplyBackground(img, opts.Background)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, final, imaging.PNG); err != nil {
		return nil, 0, 0, logging.NewOperationError("usecase.encode_png", requestID, err)
	}

	bounds := final.Bounds()
	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// GetJob retrieves the metadata of a past request, preferring the cache.
func (uc *ProcessUseCase) GetJob(ctx context.Context, requestID string) (*repository.ProcessingLog, error) {
	cacheKey := jobCacheKey(requestID)
	if cached, err := uc.withRedisGet(ctx, requestID, "cache.get.result", cacheKey); err == nil {
		var payload cachedJob
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			logging.WithOperation(uc.logger, "usecase.get_job", requestID).Warn("failed to decode cached job", zap.Error(err))
		} else if payload.RequestID != "" {
			return &repository.ProcessingLog{
				RequestID:       payload.RequestID,
				Filename:        payload.Filename,
				BackgroundColor: payload.BackgroundColor,
				Shadow:          payload.Shadow,
				OutputWidth:     payload.OutputWidth,
				OutputHeight:    payload.OutputHeight,
				DurationMs:      payload.DurationMs,
				Success:         payload.Success,
				Details:         payload.Details,
				SHA1Hash:        payload.Hash,
				CreatedAt:       payload.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logging.WithOperation(uc.logger, "usecase.get_job", requestID).Warn("failed to read cache", zap.Error(err))
	}

	return uc.repo.FindByRequestID(ctx, requestID)
}

func jobCacheKey(requestID string) string {
	return fmt.Sprintf("job:%s", requestID)
}

func (uc *ProcessUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	if uc.retryAttempts <= 1 {
		err := fn()
		return logging.NewOperationError(operation, requestID, err)
	}

	backoff := uc.initialBackoff
	opLogger := logging.WithOperation(uc.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < uc.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= uc.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == uc.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func (uc *ProcessUseCase) withRedisGet(ctx context.Context, requestID, operation, cacheKey string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, cacheKey)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
