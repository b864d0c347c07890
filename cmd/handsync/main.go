package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bnema/handsync/config"
	"github.com/bnema/handsync/internal/adapter/api"
	sqlitestore "github.com/bnema/handsync/internal/adapter/storage/sqlite"
	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/infrastructure/logger"
	"github.com/bnema/handsync/internal/service"
)

const usage = `usage: handsync <command> [flags]

commands:
  submit <video>    upload a video for hand tracking
  watch <job-id>    follow a job until it finishes
  fetch <job-id>    assemble and download the results of a finished job
  jobs              list jobs known to the server
  history           list local submissions
  delete <job-id>   delete a job on the server (or --all)
  replay <job-id>   step through the generated robot commands
  health            check server availability
`

type app struct {
	cfg     *config.Config
	client  *api.Client
	history *sqlitestore.HistoryStore
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		logger.Error.Printf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	cfgPath := os.Getenv("HANDSYNC_CONFIG")
	if cfgPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfgPath = filepath.Join(home, ".handsync", "config.yaml")
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	history, err := sqlitestore.NewHistoryStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open submission history: %w", err)
	}
	defer func() { _ = history.Close() }()

	a := &app{
		cfg:     cfg,
		client:  api.NewClient(cfg.ServerURL, cfg.Session, cfg.RequestTimeout()),
		history: history,
	}

	switch command {
	case "submit":
		return a.submit(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	case "fetch":
		return a.fetch(ctx, args)
	case "jobs":
		return a.jobs(ctx)
	case "history":
		return a.localHistory()
	case "delete":
		return a.delete(ctx, args)
	case "replay":
		return a.replay(ctx, args)
	case "health":
		return a.health(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) newPoller(bus *service.EventBus) *service.Poller {
	return service.NewPoller(a.client, a.history, bus, nil, a.cfg.PollInterval(), a.cfg.RetryBackoff())
}

func (a *app) submit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	hand := fs.String("hand", string(domain.TargetHandRight), "target hand: left or right")
	detection := fs.Float64("detection", 0, "detection confidence override")
	tracking := fs.Float64("tracking", 0, "tracking confidence override")
	maxHands := fs.Int("max-hands", 0, "maximum hands to track")
	noVideo := fs.Bool("no-video", false, "skip overlay video generation")
	noCommands := fs.Bool("no-commands", false, "skip robot command generation")
	follow := fs.Bool("watch", false, "follow the job after submitting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("submit: expected exactly one video path")
	}

	opts := domain.ProcessOptions{
		TargetHand:          domain.TargetHand(*hand),
		DetectionConfidence: *detection,
		TrackingConfidence:  *tracking,
		MaxHands:            *maxHands,
		GenerateVideo:       !*noVideo,
		GenerateCommands:    !*noCommands,
	}

	submitter := service.NewSubmitter(a.client, a.history)
	job, err := submitter.SubmitFile(ctx, fs.Arg(0), opts)
	if err != nil {
		return err
	}
	fmt.Printf("submitted: %s\n", job.ID)

	if *follow {
		return a.followJob(ctx, job.ID)
	}
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("watch: expected exactly one job id")
	}
	return a.followJob(ctx, args[0])
}

func (a *app) followJob(ctx context.Context, jobID string) error {
	bus := service.NewEventBus()
	events := bus.Subscribe(jobID)
	defer bus.Unsubscribe(jobID, events)

	go func() {
		for ev := range events {
			step := logger.SanitizeForLog(ev.CurrentStep)
			msg := logger.SanitizeForLog(ev.Message)
			if ev.ETASeconds != nil {
				fmt.Printf("%3d%%  %-24s %s (eta %.0fs)\n", ev.Progress, step, msg, *ev.ETASeconds)
			} else {
				fmt.Printf("%3d%%  %-24s %s\n", ev.Progress, step, msg)
			}
		}
	}()

	job, err := a.newPoller(bus).Watch(ctx, jobID)
	if err != nil {
		var failed *domain.JobFailedError
		if errors.As(err, &failed) {
			return fmt.Errorf("job %s failed: %s", jobID, logger.SanitizeForLog(failed.Detail))
		}
		return err
	}
	fmt.Printf("job %s completed\n", job.ID)
	return nil
}

func (a *app) fetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	outDir := fs.String("out", ".", "directory for downloaded artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("fetch: expected exactly one job id")
	}
	jobID := fs.Arg(0)

	job, err := a.client.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Terminal() {
		if job, err = a.newPoller(nil).Watch(ctx, jobID); err != nil {
			return err
		}
	}
	if job.Status == domain.JobStatusError {
		return &domain.JobFailedError{JobID: jobID, Detail: job.ErrorDetail}
	}

	bundle, err := service.NewAggregator(a.client).Assemble(ctx, job)
	if err != nil {
		return err
	}

	fmt.Printf("job:        %s\n", bundle.Job.ID)
	fmt.Printf("frames:     %d\n", len(bundle.Frames))
	fmt.Printf("steps:      %d\n", len(bundle.Analysis.Timeline))
	fmt.Printf("confidence: %.2f\n", bundle.Analysis.Confidence)
	if bundle.Degraded {
		fmt.Println("note: AI analysis unavailable, timeline is empty")
	}
	if bundle.Stats != nil {
		fmt.Printf("stats:      %s\n", bundle.Stats)
	}

	if err := a.downloadTo(ctx, *outDir, jobID+"_tracked.mp4", a.client.DownloadVideo, jobID); err != nil {
		logger.Warn.Printf("download video: %v", err)
	}
	if err := a.downloadTo(ctx, *outDir, jobID+"_commands.json", a.client.DownloadCommands, jobID); err != nil {
		logger.Warn.Printf("download commands: %v", err)
	}
	return nil
}

func (a *app) downloadTo(ctx context.Context, dir, name string, fetch func(context.Context, string) (io.ReadCloser, error), jobID string) error {
	body, err := fetch(ctx, jobID)
	if err != nil {
		return err
	}
	defer body.Close()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", path)
	return nil
}

func (a *app) jobs(ctx context.Context) error {
	jobs, err := a.client.ListJobs(ctx)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		fmt.Printf("%-36s  %-10s  %3d%%  %s\n", j.ID, j.Status, j.Progress, logger.SanitizeForLog(j.VideoName))
	}
	return nil
}

func (a *app) localHistory() error {
	subs, err := a.history.List()
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Printf("%-36s  %-10s  %3d%%  %s  %s\n",
			s.JobID, s.Status, s.Progress, s.SubmittedAt.Local().Format("2006-01-02 15:04"), s.FileName)
	}
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	all := fs.Bool("all", false, "delete every job on the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *all {
		n, err := a.client.DeleteAllJobs(ctx)
		if err != nil {
			return err
		}
		if _, err := a.history.DeleteAll(); err != nil {
			logger.Warn.Printf("clear local history: %v", err)
		}
		fmt.Printf("deleted %d jobs\n", n)
		return nil
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("delete: expected a job id or --all")
	}
	jobID := fs.Arg(0)
	if err := a.client.DeleteJob(ctx, jobID); err != nil {
		return err
	}
	if err := a.history.Delete(jobID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn.Printf("remove local record: %v", err)
	}
	fmt.Printf("deleted %s\n", jobID)
	return nil
}

func (a *app) replay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	rate := fs.Float64("rate", 1.0, "playback rate multiplier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("replay: expected exactly one job id")
	}
	jobID := fs.Arg(0)

	body, err := a.client.DownloadCommands(ctx, jobID)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return err
	}
	commands, err := domain.ParseCommands(data)
	if err != nil {
		return err
	}
	fmt.Printf("replaying %d commands\n", len(commands))

	controller := service.NewPlaybackController(float64(len(commands)) * 0.1)
	controller.SetRate(*rate)
	controller.Play()

	return service.NewReplayer(controller, nil).Run(ctx, commands, func(c domain.RobotCommand) {
		out, _ := json.Marshal(c)
		fmt.Println(string(out))
	})
}

func (a *app) health(ctx context.Context) error {
	if err := a.client.Health(ctx); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	fmt.Println("ok")
	return nil
}
