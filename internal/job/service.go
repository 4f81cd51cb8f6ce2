package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/maauso/pfp-animate/internal/media"
	"github.com/maauso/pfp-animate/internal/payload"
	"github.com/maauso/pfp-animate/internal/pipeline"
	"github.com/maauso/pfp-animate/internal/prediction"
	"github.com/maauso/pfp-animate/internal/preset"
	"github.com/maauso/pfp-animate/internal/replicate"
	"github.com/maauso/pfp-animate/internal/sequencer"
	"github.com/maauso/pfp-animate/internal/storage"
)

// Static errors returned by the service.
var (
	// ErrPublishUnavailable is returned when publishing is requested without a bucket.
	ErrPublishUnavailable = errors.New("publishing requested but no bucket is configured")
	// ErrJobActive is returned when deleting a job that has not finished.
	ErrJobActive = errors.New("job is still running")
)

// Remote is the prediction API the service drives.
type Remote interface {
	pipeline.Submitter
	prediction.StatusFetcher
	Download(ctx context.Context, url string) ([]byte, error)
}

// Timings holds the poll cadence and deadline of each model stage.
type Timings struct {
	Frame    pipeline.Timing
	Speech   pipeline.Timing
	LipSync  pipeline.Timing
	Kling    pipeline.Timing
	Veo      pipeline.Timing
	Portrait pipeline.Timing
}

// DefaultTimings returns the poll timings tuned for each model.
func DefaultTimings() Timings {
	return Timings{
		Frame:    pipeline.Timing{Interval: time.Second, Timeout: time.Minute},
		Speech:   pipeline.Timing{Interval: 2 * time.Second, Timeout: 2 * time.Minute},
		LipSync:  pipeline.Timing{Interval: 5 * time.Second, Timeout: 10 * time.Minute},
		Kling:    pipeline.Timing{Interval: 2 * time.Second, Timeout: 5 * time.Minute},
		Veo:      pipeline.Timing{Interval: 5 * time.Second, Timeout: 10 * time.Minute},
		Portrait: pipeline.Timing{Interval: 2 * time.Second, Timeout: 2 * time.Minute},
	}
}

const defaultVeoSeconds = 8

// Output is the result of a processed job.
type Output struct {
	JobID        string
	Status       Status
	Path         string
	URL          string
	Format       string
	FellBack     bool
	Frames       int
	LostFrames   []int
	Elapsed      time.Duration
	CostEstimate float64
	Error        string
}

// Service creates jobs and runs their pipelines.
type Service struct {
	repo      Repository
	remote    Remote
	assembler *media.Assembler
	store     storage.Storage
	prober    media.Prober
	catalog   *preset.Catalog
	seqCfg    sequencer.Config
	timings   Timings
	sleep     replicate.Sleeper
	now       func() time.Time
	outputDir string
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStorage sets the store used for kept frames and publishing.
func WithStorage(s storage.Storage) ServiceOption {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithProber sets the prober used to measure input audio.
func WithProber(p media.Prober) ServiceOption {
	return func(svc *Service) {
		svc.prober = p
	}
}

// WithCatalog sets the preset catalog.
func WithCatalog(c *preset.Catalog) ServiceOption {
	return func(svc *Service) {
		if c != nil {
			svc.catalog = c
		}
	}
}

// WithSequencerConfig sets the frame retry and pacing configuration.
func WithSequencerConfig(cfg sequencer.Config) ServiceOption {
	return func(svc *Service) {
		svc.seqCfg = cfg
	}
}

// WithTimings sets the per-model poll timings.
func WithTimings(t Timings) ServiceOption {
	return func(svc *Service) {
		svc.timings = t
	}
}

// WithSleeper replaces the sleeper used for polling and frame pacing.
func WithSleeper(s replicate.Sleeper) ServiceOption {
	return func(svc *Service) {
		if s != nil {
			svc.sleep = s
		}
	}
}

// WithClock replaces the clock used for poll deadlines.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithOutputDir sets where deliverables are written when the input has no
// output path.
func WithOutputDir(dir string) ServiceOption {
	return func(svc *Service) {
		if dir != "" {
			svc.outputDir = dir
		}
	}
}

// NewService creates a Service.
func NewService(repo Repository, remote Remote, assembler *media.Assembler, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:      repo,
		remote:    remote,
		assembler: assembler,
		catalog:   preset.Default(),
		seqCfg:    sequencer.DefaultConfig(),
		timings:   DefaultTimings(),
		sleep:     replicate.SleepContext,
		now:       time.Now,
		outputDir: filepath.Join(os.TempDir(), "pfp-animate"),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assembler == nil {
		s.assembler = media.NewAssembler(nil, logger)
	}
	return s
}

// Catalog returns the preset catalog in use.
func (s *Service) Catalog() *preset.Catalog {
	return s.catalog
}

// CanPublish reports whether deliverables can be uploaded.
func (s *Service) CanPublish() bool {
	return s.store != nil && s.store.CanPublish()
}

// CreateJob validates the input and stores a new job in IN_QUEUE.
func (s *Service) CreateJob(ctx context.Context, in Input) (*Job, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Publish && !s.CanPublish() {
		return nil, fmt.Errorf("%w: %w", ErrPublishUnavailable, storage.ErrPublishNotConfigured)
	}

	job := New(in.Kind)
	job.Publish = in.Publish

	s.logger.Info("creating new job",
		slog.String("job_id", job.ID),
		slog.String("kind", string(in.Kind)),
		slog.Bool("publish", in.Publish),
	)

	if err := s.repo.Save(ctx, job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return job, nil
}

// GetJob retrieves a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns all jobs, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// DeleteJob removes a finished job and its local deliverable.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !job.IsTerminal() {
		return ErrJobActive
	}
	if job.OutputPath != "" && s.store != nil {
		if err := s.store.CleanupTemp(ctx, []string{job.OutputPath}); err != nil {
			s.logger.Warn("failed to remove job output",
				slog.String("job_id", id),
				slog.String("path", job.OutputPath),
				slog.String("error", err.Error()),
			)
		}
	}
	return s.repo.Delete(ctx, id)
}

// Run creates a job and processes it synchronously.
func (s *Service) Run(ctx context.Context, in Input) (*Output, error) {
	job, err := s.CreateJob(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.ProcessExistingJob(ctx, job.ID, in)
}

// ProcessExistingJob runs the pipeline of a job created by CreateJob.
// The returned Output reflects the final job state; the error is the
// pipeline failure, if any.
func (s *Service) ProcessExistingJob(ctx context.Context, id string, in Input) (*Output, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.Start(); err != nil {
		return nil, fmt.Errorf("start job %s: %w", id, err)
	}
	s.save(ctx, job)

	logger := s.logger.With(slog.String("job_id", job.ID), slog.String("kind", string(job.Kind)))
	logger.Info("job started")

	if procErr := s.process(ctx, job, in, logger); procErr != nil {
		status := statusForError(procErr)
		if err := job.Finish(status, procErr.Error()); err != nil {
			logger.Error("failed to record job failure", slog.String("error", err.Error()))
		}
		s.save(ctx, job)
		logger.Error("job failed",
			slog.String("status", string(status)),
			slog.Duration("elapsed", job.Elapsed()),
			slog.String("error", procErr.Error()),
		)
		return toOutput(job), procErr
	}

	if err := job.Complete(); err != nil {
		return toOutput(job), fmt.Errorf("complete job %s: %w", id, err)
	}
	s.save(ctx, job)

	out := toOutput(job)
	logger.Info("job completed",
		slog.String("path", out.Path),
		slog.String("url", out.URL),
		slog.String("format", out.Format),
		slog.Bool("fell_back", out.FellBack),
		slog.Any("lost_frames", out.LostFrames),
		slog.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func (s *Service) process(ctx context.Context, job *Job, in Input, logger *slog.Logger) error {
	switch in.Kind {
	case KindKeyframe:
		return s.runKeyframes(ctx, job, in, logger)
	case KindLipSync, KindTTSLipSync:
		return s.runLipSync(ctx, job, in, logger)
	case KindKling, KindVeo:
		return s.runVideo(ctx, job, in, logger)
	case KindPortrait:
		return s.runPortrait(ctx, job, in, logger)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}
}

func (s *Service) runKeyframes(ctx context.Context, job *Job, in Input, logger *slog.Logger) error {
	frames, fps, err := s.keyframes(in)
	if err != nil {
		return err
	}
	image, err := payload.LoadImage(payload.KeyImage, in.Image)
	if err != nil {
		return err
	}

	poller := s.newPoller(ctx, job, logger)
	if in.Stylize {
		image = s.stylize(ctx, job, poller, image, logger)
	}

	s.recordCost(job, logger, len(frames), 0, false)
	s.setStage(ctx, job, "frames")

	stage := pipeline.NewDirectStage(pipeline.DirectConfig{
		Name:   "expression",
		Target: payload.ExpressionEditorTarget,
		Build:  payload.ExpressionEditor(),
		Timing: s.timings.Frame,
	}, s.remote, poller, logger)

	seq := sequencer.New(stage, s.seqCfg,
		sequencer.WithSleeper(s.sleep),
		sequencer.WithLogger(logger),
		sequencer.WithProgress(func(done, total int) {
			job.UpdateProgress(done * 80 / total)
			s.save(ctx, job)
		}),
	)

	slots, err := seq.Generate(ctx, pipeline.Request{payload.KeyImage: image}, frames)
	if err != nil {
		return err
	}

	s.setStage(ctx, job, "download")
	lost := sequencer.Lost(slots)
	data := make([][]byte, len(slots))
	for _, slot := range slots {
		if slot.Artifact == nil {
			continue
		}
		b, err := s.remote.Download(ctx, slot.Artifact.First())
		if err != nil {
			logger.Warn("frame download failed",
				slog.Int("frame", slot.Index+1),
				slog.String("error", err.Error()),
			)
			lost = append(lost, slot.Index)
			continue
		}
		data[slot.Index] = b
		s.keepFrame(ctx, job, in, slot.Index, b, logger)
	}
	slices.Sort(lost)
	job.SetFrames(len(frames), lost)
	job.UpdateProgress(90)

	s.setStage(ctx, job, "assemble")
	format := media.FormatMP4
	if in.Format != "" {
		if format, err = media.ParseFormat(in.Format); err != nil {
			return err
		}
	}
	res, err := s.assembler.Assemble(ctx, data, fps, format, s.outputPath(job, in, format))
	if err != nil {
		return err
	}
	logger.Info("frames assembled",
		slog.Int("frames", res.Frames),
		slog.Int("lost", len(lost)),
		slog.String("format", string(res.Format)),
	)

	return s.deliver(ctx, job, in, res.Path, res.Format, res.FellBack)
}

func (s *Service) keyframes(in Input) (sequencer.KeyframeSet, int, error) {
	fps := in.FPS
	switch {
	case len(in.Keyframes) > 0:
		if fps == 0 {
			fps = media.DefaultFPS
		}
		return in.Keyframes, fps, nil
	case in.GridX > 0:
		set, err := preset.GazeGrid(in.GridX, in.GridY)
		if err != nil {
			return nil, 0, &payload.PreconditionError{Field: "grid", Value: fmt.Sprintf("%dx%d", in.GridX, in.GridY), Err: err}
		}
		if fps == 0 {
			fps = media.DefaultFPS
		}
		return set, fps, nil
	default:
		name := in.Animation
		if name == "" {
			name = "nod"
		}
		anim, err := s.catalog.Animation(name)
		if err != nil {
			return nil, 0, &payload.PreconditionError{Field: "animation", Value: name, Err: err}
		}
		if fps == 0 {
			fps = anim.FPS
		}
		return anim.Keyframes(), fps, nil
	}
}

// stylize runs the portrait model first. Keyframes fall back to the
// original image when it fails.
func (s *Service) stylize(ctx context.Context, job *Job, poller *prediction.Poller, image string, logger *slog.Logger) string {
	s.setStage(ctx, job, "stylize")
	stage := s.portraitStage(poller, logger)
	art, err := stage.Run(ctx, pipeline.Request{payload.KeyImage: image})
	if err != nil {
		logger.Warn("stylization failed, using original image", slog.String("error", err.Error()))
		return image
	}
	return art.First()
}

func (s *Service) keepFrame(ctx context.Context, job *Job, in Input, index int, data []byte, logger *slog.Logger) {
	if !in.KeepFrames || s.store == nil {
		return
	}
	path, err := s.store.SaveTemp(ctx, fmt.Sprintf("%s_frame_%03d", job.ID, index), bytes.NewReader(data))
	if err != nil {
		logger.Warn("failed to keep frame", slog.Int("frame", index+1), slog.String("error", err.Error()))
		return
	}
	logger.Debug("frame kept", slog.Int("frame", index+1), slog.String("path", path))
}

func (s *Service) runLipSync(ctx context.Context, job *Job, in Input, logger *slog.Logger) error {
	image, err := payload.LoadImage(payload.KeyImage, in.Image)
	if err != nil {
		return err
	}

	req := pipeline.Request{payload.KeyImage: image}
	if in.Prompt != "" {
		req[payload.KeyPrompt] = in.Prompt
	}
	if in.Seed != nil {
		req[payload.KeySeed] = *in.Seed
	}
	if in.FastMode {
		req[payload.KeyFastMode] = true
	}

	poller := s.newPoller(ctx, job, logger)
	lipsync := pipeline.NewDirectStage(pipeline.DirectConfig{
		Name:   "lipsync",
		Target: payload.OmniHumanTarget,
		Build:  payload.LipSync(),
		Timing: s.timings.LipSync,
	}, s.remote, poller, logger)

	var (
		stage   pipeline.Stage = lipsync
		seconds float64
	)
	if in.Kind == KindTTSLipSync {
		voice := in.Voice
		if voice == "" {
			voice = payload.DefaultVoice
		}
		if err := s.catalog.CheckVoice(voice); err != nil {
			return &payload.PreconditionError{Field: "voice", Value: voice, Err: err}
		}
		req[payload.KeyText] = in.Text
		req[payload.KeyVoice] = voice
		if in.Language != "" {
			req[payload.KeyLanguage] = in.Language
		}
		seconds = float64(utf8.RuneCountInString(in.Text)) / speechCharsPerSecond

		speech := pipeline.NewDirectStage(pipeline.DirectConfig{
			Name:   "speech",
			Target: payload.SpeechTarget,
			Build:  payload.Speech(),
			Timing: s.timings.Speech,
		}, s.remote, poller, logger)
		stage = pipeline.Compose("tts_lipsync", speech, pipeline.SpliceInto(payload.KeyAudio), lipsync)
	} else {
		audio, err := payload.LoadAudio(payload.KeyAudio, in.Audio)
		if err != nil {
			return err
		}
		req[payload.KeyAudio] = audio
		seconds = s.audioSeconds(ctx, in.Audio, logger)
	}

	if seconds > MaxLipSyncSeconds {
		logger.Warn("audio is longer than the lip-sync model handles reliably",
			slog.Float64("seconds", seconds),
			slog.Float64("limit", MaxLipSyncSeconds),
		)
	}
	s.recordCost(job, logger, 0, seconds, false)

	s.setStage(ctx, job, stage.Name())
	art, err := stage.Run(ctx, req)
	if err != nil {
		return err
	}
	return s.deliverArtifact(ctx, job, in, art, media.FormatMP4)
}

func (s *Service) audioSeconds(ctx context.Context, ref string, logger *slog.Logger) float64 {
	if payload.IsRemote(ref) {
		return 0
	}
	if s.prober != nil {
		d, err := s.prober.MediaDuration(ctx, ref)
		if err == nil {
			return d
		}
		logger.Debug("probe failed, estimating duration from size", slog.String("error", err.Error()))
	}
	return media.EstimateDuration(ref)
}

func (s *Service) runVideo(ctx context.Context, job *Job, in Input, logger *slog.Logger) error {
	image, err := payload.LoadImage(payload.KeyImage, in.Image)
	if err != nil {
		return err
	}

	prompt, negative := in.Prompt, in.NegativePrompt
	if prompt == "" {
		motion, err := s.catalog.Motion(in.Motion)
		if err != nil {
			return &payload.PreconditionError{Field: "motion", Value: in.Motion, Err: err}
		}
		prompt = motion.Prompt
		if negative == "" {
			negative = motion.Negative
		}
	}

	req := pipeline.Request{payload.KeyImage: image, payload.KeyPrompt: prompt}
	if negative != "" {
		req[payload.KeyNegativePrompt] = negative
	}
	if in.Duration > 0 {
		req[payload.KeyDuration] = in.Duration
	}
	if in.AspectRatio != "" {
		req[payload.KeyAspectRatio] = in.AspectRatio
	}

	cfg := pipeline.DirectConfig{Name: string(in.Kind)}
	if in.Kind == KindKling {
		cfg.Target, cfg.Build, cfg.Timing = payload.KlingTarget, payload.Kling(), s.timings.Kling
		cfg.PreferWait = true
		if in.Guidance != nil {
			req[payload.KeyGuidance] = *in.Guidance
		}
		logger.Info("kling pricing is not estimated")
	} else {
		cfg.Target, cfg.Build, cfg.Timing = payload.VeoTarget, payload.Veo(), s.timings.Veo
		if in.Resolution != "" {
			req[payload.KeyResolution] = in.Resolution
		}
		if err := loadVeoImages(req, in); err != nil {
			return err
		}
		withAudio := in.GenerateAudio == nil || *in.GenerateAudio
		req[payload.KeyGenerateAudio] = withAudio
		seconds := in.Duration
		if seconds == 0 {
			seconds = defaultVeoSeconds
		}
		s.recordCost(job, logger, 0, float64(seconds), withAudio)
	}

	poller := s.newPoller(ctx, job, logger)
	stage := pipeline.NewDirectStage(cfg, s.remote, poller, logger)

	s.setStage(ctx, job, stage.Name())
	art, err := stage.Run(ctx, req)
	if err != nil {
		return err
	}
	return s.deliverArtifact(ctx, job, in, art, media.FormatMP4)
}

// loadVeoImages resolves the optional reference and end images into req.
func loadVeoImages(req pipeline.Request, in Input) error {
	if len(in.ReferenceImages) > 0 {
		refs := make([]string, 0, len(in.ReferenceImages))
		for i, ref := range in.ReferenceImages {
			uri, err := payload.LoadImage(fmt.Sprintf("%s[%d]", payload.KeyReferenceImages, i), ref)
			if err != nil {
				return err
			}
			refs = append(refs, uri)
		}
		req[payload.KeyReferenceImages] = refs
	}
	if in.EndImage != "" {
		uri, err := payload.LoadImage(payload.KeyEndImage, in.EndImage)
		if err != nil {
			return err
		}
		req[payload.KeyEndImage] = uri
	}
	return nil
}

func (s *Service) runPortrait(ctx context.Context, job *Job, in Input, logger *slog.Logger) error {
	image, err := payload.LoadImage(payload.KeyImage, in.Image)
	if err != nil {
		return err
	}
	req := pipeline.Request{payload.KeyImage: image}
	if in.Prompt != "" {
		req[payload.KeyPrompt] = in.Prompt
	}

	stage := s.portraitStage(s.newPoller(ctx, job, logger), logger)
	s.setStage(ctx, job, stage.Name())
	art, err := stage.Run(ctx, req)
	if err != nil {
		return err
	}
	return s.deliverArtifact(ctx, job, in, art, media.FormatPNG)
}

func (s *Service) portraitStage(poller *prediction.Poller, logger *slog.Logger) *pipeline.DirectStage {
	return pipeline.NewDirectStage(pipeline.DirectConfig{
		Name:   "portrait",
		Target: payload.PortraitTarget,
		Build:  payload.Portrait(),
		Timing: s.timings.Portrait,
	}, s.remote, poller, logger)
}

// newPoller returns a poller that mirrors prediction state changes onto job.
func (s *Service) newPoller(ctx context.Context, job *Job, logger *slog.Logger) *prediction.Poller {
	return prediction.NewPoller(s.remote,
		prediction.WithSleeper(s.sleep),
		prediction.WithClock(s.now),
		prediction.WithLogger(logger),
		prediction.WithObserver(func(c prediction.StateChange) {
			job.SetRemoteState(string(c.To))
			s.save(ctx, job)
		}),
	)
}

// deliverArtifact downloads the first URL of a single-output stage.
func (s *Service) deliverArtifact(ctx context.Context, job *Job, in Input, art pipeline.Artifact, format media.Format) error {
	job.UpdateProgress(80)
	s.setStage(ctx, job, "download")
	if art.IsEmpty() {
		return pipeline.ErrEmptyArtifact
	}
	data, err := s.remote.Download(ctx, art.First())
	if err != nil {
		return fmt.Errorf("download output: %w", err)
	}
	path, err := media.WriteSingle(data, s.outputPath(job, in, format), format.Ext())
	if err != nil {
		return err
	}
	return s.deliver(ctx, job, in, path, format, false)
}

// deliver records the output and publishes it when requested. A published
// file written to a generated path is removed locally.
func (s *Service) deliver(ctx context.Context, job *Job, in Input, path string, format media.Format, fellBack bool) error {
	var url string
	if job.Publish {
		s.setStage(ctx, job, "publish")
		var err error
		if url, err = s.publish(ctx, job.ID, path, format); err != nil {
			return err
		}
		if in.OutputPath == "" {
			if err := s.store.CleanupTemp(ctx, []string{path}); err != nil {
				s.logger.Warn("failed to remove published output",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			} else {
				path = ""
			}
		}
	}
	job.SetOutput(path, url, string(format), fellBack)
	return nil
}

func (s *Service) publish(ctx context.Context, jobID, path string, format media.Format) (string, error) {
	if !s.CanPublish() {
		return "", ErrPublishUnavailable
	}
	r, err := s.store.Open(ctx, path)
	if err != nil {
		return "", fmt.Errorf("publish output: %w", err)
	}
	defer func() { _ = r.Close() }()

	url, err := s.store.Publish(ctx, jobID+format.Ext(), r, format.ContentType())
	if err != nil {
		return "", fmt.Errorf("publish output: %w", err)
	}
	return url, nil
}

func (s *Service) outputPath(job *Job, in Input, format media.Format) string {
	if in.OutputPath != "" {
		return in.OutputPath
	}
	return filepath.Join(s.outputDir, job.ID+format.Ext())
}

func (s *Service) recordCost(job *Job, logger *slog.Logger, frames int, seconds float64, withAudio bool) {
	cost, ok := EstimateCost(job.Kind, frames, seconds, withAudio)
	if !ok {
		return
	}
	job.SetCostEstimate(cost)
	logger.Info("estimated cost",
		slog.Float64("usd", cost),
		slog.Int("frames", frames),
		slog.Float64("seconds", seconds),
	)
}

func (s *Service) setStage(ctx context.Context, job *Job, stage string) {
	job.SetStage(stage)
	s.save(ctx, job)
}

func (s *Service) save(ctx context.Context, job *Job) {
	if err := s.repo.Save(context.WithoutCancel(ctx), job); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}
}

// statusForError maps a pipeline failure to the job status it ends in.
func statusForError(err error) Status {
	var timeout *prediction.TimeoutError
	if errors.As(err, &timeout) || errors.Is(err, context.DeadlineExceeded) {
		return StatusTimedOut
	}
	var remote *prediction.RemoteJobError
	if errors.As(err, &remote) && remote.State == prediction.StateCanceled {
		return StatusCancelled
	}
	if errors.Is(err, context.Canceled) {
		return StatusCancelled
	}
	return StatusFailed
}

func toOutput(job *Job) *Output {
	snap := job.Clone()
	return &Output{
		JobID:        snap.ID,
		Status:       snap.Status,
		Path:         snap.OutputPath,
		URL:          snap.OutputURL,
		Format:       snap.Format,
		FellBack:     snap.FellBack,
		Frames:       snap.FramesTotal,
		LostFrames:   snap.LostFrames,
		Elapsed:      snap.Elapsed(),
		CostEstimate: snap.CostEstimate,
		Error:        snap.Error,
	}
}
