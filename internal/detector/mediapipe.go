package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const serviceScript = "mediapipe_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
// Frames go out as a 4-byte big-endian length followed by JPEG bytes; each
// reply is one JSON line.
type MediaPipeDetector struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	open   bool
}

// NewMediaPipeDetector creates a new MediaPipe detector. The service is not
// started until Open.
func NewMediaPipeDetector(config Config, logger *zap.Logger) *MediaPipeDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = DefaultConfig().JPEGQuality
	}
	return &MediaPipeDetector{
		config: config,
		logger: logger.Named("mediapipe"),
	}
}

// Open starts the Python service.
func (d *MediaPipeDetector) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}
	return d.start()
}

// SetConfidence changes the detection and tracking thresholds. A running
// service is restarted with the new flags; if that fails the old thresholds
// are restored and the service restarted with them.
func (d *MediaPipeDetector) SetConfidence(detection, tracking float64) error {
	if detection < 0 || detection > 1 || tracking < 0 || tracking > 1 {
		return fmt.Errorf("confidence out of range: detection=%v tracking=%v", detection, tracking)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.config
	d.config.MinConfidence = detection
	d.config.MinTrackingConf = tracking
	if !d.open {
		return nil
	}

	if err := d.stop(); err != nil {
		d.logger.Warn("mediapipe service exit on restart", zap.Error(err))
	}
	err := d.start()
	if err == nil {
		return nil
	}
	d.config = prev
	if rerr := d.start(); rerr != nil {
		return errors.Join(err, fmt.Errorf("restore previous service: %w", rerr))
	}
	return err
}

// serviceArgs returns the interpreter arguments for script.
func (d *MediaPipeDetector) serviceArgs(script string) []string {
	return []string{script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

// start launches the service. d.mu must be held.
func (d *MediaPipeDetector) start() error {
	scriptPath := d.config.ScriptPath
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return fmt.Errorf("%s not found", serviceScript)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return fmt.Errorf("mediapipe script: %w", err)
	}

	pythonPath := d.config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	cmd := exec.Command(pythonPath, d.serviceArgs(scriptPath)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.open = true

	d.logger.Info("mediapipe service started",
		zap.String("python", pythonPath),
		zap.String("script", scriptPath),
		zap.Int("pid", cmd.Process.Pid),
		zap.Float64("min_detection_confidence", d.config.MinConfidence),
		zap.Float64("min_tracking_confidence", d.config.MinTrackingConf),
	)
	return nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil, ErrDetectorClosed
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), d.config.JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseResponse(line)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return nil
	}
	return d.stop()
}

// stop closes the service's stdin and waits for it to exit. d.mu must be held.
func (d *MediaPipeDetector) stop() error {
	d.stdin.Close()
	err := d.cmd.Wait()

	d.open = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	if err != nil {
		return fmt.Errorf("mediapipe service exit: %w", err)
	}
	return nil
}

func parseResponse(line []byte) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]HandLandmarks, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".mudra", "scripts", serviceScript),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// toHandLandmarks keeps every point the service sent; the point count is
// checked downstream.
func (h jsonHand) toHandLandmarks() HandLandmarks {
	points := make([]Point3D, len(h.Points))
	copy(points, h.Points)
	return HandLandmarks{
		Points:     points,
		Handedness: Handedness(h.Handedness),
		Score:      h.Score,
	}
}
