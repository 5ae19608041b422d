package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/rs/xid"
)

// namePrefix marks containers owned by this process so they are easy to
// find and reap by hand after a crash.
const namePrefix = "coderun-"

// Pool manages a pool of pre-warmed Docker containers for fast code execution.
type Pool struct {
	cli        *client.Client
	config     Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startDone  sync.Once
}

// NewPool initializes a new container pool wrapper.
func NewPool(cli *client.Client, cfg Config, logger *slog.Logger) *Pool {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return &Pool{
		cli:        cli,
		config:     cfg,
		logger:     logger,
		containers: make(chan string, cfg.PoolSize),
		done:       make(chan struct{}),
	}
}

// Start begins filling the pool with fresh containers in the background.
func (p *Pool) Start() {
	p.startDone.Do(func() {
		p.logger.Info("starting docker container pool manager", slog.Int("poolSize", p.config.PoolSize))
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and cleans up all pre-warmed containers.
func (p *Pool) Stop() {
	p.logger.Info("shutting down docker container pool")
	close(p.done)
	p.wg.Wait()

	// Drain channel and remove surviving containers
	for {
		select {
		case id := <-p.containers:
			p.removeContainer(id)
		default:
			return
		}
	}
}

// GetContainer returns a pre-warmed container ID from the pool, or starts a
// fresh one when the pool is empty. The pool only saves startup latency; it
// never limits how many executions run at once.
func (p *Pool) GetContainer(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	p.logger.Debug("pool empty, starting container on demand")
	id, err := p.createContainer()
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		p.removeContainer(id)
		return "", ctx.Err()
	}
	return id, nil
}

// manager continuously ensures the pool is at capacity.
func (p *Pool) manager() {
	defer p.wg.Done()

	for {
		// Only create a container if there's room in the channel
		if len(p.containers) >= cap(p.containers) {
			if !p.sleep(100 * time.Millisecond) {
				return
			}
			continue
		}

		id, err := p.createContainer()
		if err != nil {
			p.logger.Error("failed to create pre-warmed container", slog.String("error", err.Error()))
			if !p.sleep(time.Second) { // backoff on failure
				return
			}
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.removeContainer(id)
			return
		}
	}
}

// sleep waits for d and reports false if the pool was stopped meanwhile.
func (p *Pool) sleep(d time.Duration) bool {
	select {
	case <-p.done:
		return false
	case <-time.After(d):
		return true
	}
}

// createContainer starts a container running `sleep infinity` with the
// scratch root mounted read-write and everything else read-only.
func (p *Pool) createContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.config.MemoryLimit,
			NanoCPUs: int64(p.config.CPULimit * 1e9),
		},
		AutoRemove:     false,
		ReadonlyRootfs: true,
		Binds:          []string{p.config.ScratchRoot + ":" + p.config.ScratchRoot + ":rw"},
		// javac and the JVM need a writable /tmp
		Tmpfs: map[string]string{"/tmp": "rw,noexec,nosuid,size=64m"},
	}

	name := namePrefix + xid.New().String()
	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image:        p.config.Image,
		Cmd:          []string{"sleep", "infinity"},
		Tty:          false,
		AttachStdout: false,
		AttachStderr: false,
		User:         p.config.User,
		Labels:       map[string]string{"app": "coderun"},
	}, hostConfig, nil, nil, name)

	if err != nil {
		return "", fmt.Errorf("ContainerCreate failed: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.removeContainer(resp.ID) // Cleanup
		return "", fmt.Errorf("ContainerStart failed: %w", err)
	}

	p.logger.Debug("warmed container", slog.String("name", name))
	return resp.ID, nil
}

// removeContainer force removes a container by ID.
func (p *Pool) removeContainer(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.cli.ContainerRemove(ctx, id, container.RemoveOptions{
		Force: true,
	})
	if err != nil {
		p.logger.Error("failed to remove container", slog.String("id", id), slog.String("error", err.Error()))
	}
}
