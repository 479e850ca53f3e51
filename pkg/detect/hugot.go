package detect

// hugot.go - fully local scam classification via Hugot/ONNX
//
// A small fine-tuned text classifier judging scam vs normal. Runs on-device
// with no network dependency, which matters for the privacy posture: the
// captured text never leaves the device when this backend is active.
//
// Build:
// - Standard: go build (pure Go backend, slower)
// - With ORT: go build -tags ORT (ONNX Runtime, fast)

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotAdapter runs a local ONNX text classification model and maps its
// label/score output onto a ModelVerdict. It satisfies ModelAdapter, so the
// fusion controller cannot tell it apart from the LLM backend.
type HugotAdapter struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	ready    bool

	modelPath       string
	onnxLibraryPath string
	timeout         time.Duration
}

// NewHugotAdapter creates an adapter for the ONNX model at modelPath. The
// directory must contain model.onnx plus tokenizer files; Initialize fails
// otherwise and the caller degrades to another backend.
func NewHugotAdapter(modelPath string, timeout time.Duration) *HugotAdapter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HugotAdapter{
		modelPath:       modelPath,
		onnxLibraryPath: defaultOnnxPath(),
		timeout:         timeout,
	}
}

// defaultOnnxPath locates libonnxruntime in common install locations.
func defaultOnnxPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// Initialize sets up the ONNX session and pipeline.
func (h *HugotAdapter) Initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := os.Stat(h.modelPath); err != nil {
		return fmt.Errorf("model path %s: %w", h.modelPath, err)
	}

	session, err := h.createSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	h.session = session

	config := hugot.TextClassificationConfig{
		ModelPath: h.modelPath,
		Name:      "scam-classifier",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = h.session.Destroy()
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	h.pipeline = pipeline
	h.ready = true
	log.Printf("Hugot classifier initialized (model: %s)", h.modelPath)
	return nil
}

// createSession prefers the ONNX Runtime backend and falls back to the pure
// Go backend when the runtime library is missing.
func (h *HugotAdapter) createSession() (*hugot.Session, error) {
	if h.onnxLibraryPath != "" {
		session, err := hugot.NewORTSession(
			options.WithOnnxLibraryPath(h.onnxLibraryPath),
		)
		if err == nil {
			log.Printf("Hugot using ONNX Runtime backend")
			return session, nil
		}
		log.Printf("ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Go session: %w", err)
	}
	log.Printf("Hugot using pure Go backend (slower, consider installing ONNX Runtime)")
	return session, nil
}

// IsAvailable reports whether the pipeline is ready for inference.
func (h *HugotAdapter) IsAvailable() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// scamLabel maps the classifier's label vocabulary onto a scam judgment.
// Fine-tunes in the wild disagree on label names; cover the common ones.
func scamLabel(label string) bool {
	switch label {
	case "scam", "SCAM", "fraud", "LABEL_1":
		return true
	default:
		return false
	}
}

// Analyze classifies the text and maps the label/score output onto the
// shared verdict shape. A classifier has no generative capacity, so the
// verdict carries no message or excerpts; category inference stays with
// the rule side.
func (h *HugotAdapter) Analyze(ctx context.Context, text string) (*ModelVerdict, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.ready || h.pipeline == nil {
		return nil, ErrModelNotReady
	}

	start := time.Now()
	result, err := h.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	latency := float64(time.Since(start).Milliseconds())

	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return nil, fmt.Errorf("%w: empty classification output", ErrModelParseFailure)
	}
	out := result.ClassificationOutputs[0][0]

	isScam := scamLabel(out.Label)
	confidence := float64(out.Score)
	if !isScam {
		// Score is confidence in the winning label; express it as scam
		// probability so fusion math is backend-independent.
		confidence = 1 - confidence
	}

	return &ModelVerdict{
		IsScam:     isScam,
		Confidence: clamp01(confidence),
		Category:   string(CategoryUnknown),
		Reasons:    []string{fmt.Sprintf("on-device classifier: %s (%.2f)", out.Label, out.Score)},
		LatencyMs:  latency,
	}, nil
}

// Close releases the ONNX session.
func (h *HugotAdapter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ready = false
	if h.session != nil {
		if err := h.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return nil
}
