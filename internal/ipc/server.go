package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"murmur/internal/daemon"
	"murmur/internal/jobs"
	"murmur/internal/logging"
)

const serviceName = "Murmur"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. onStop
// is invoked when a client requests daemon shutdown; it runs outside
// the RPC call so the response reaches the client first.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger, onStop func()) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, onStop: onStop}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun murmur daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	onStop func()
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	status := s.daemon.Status()
	resp.Pong = true
	resp.PID = status.PID
	resp.SessionID = status.SessionID
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status()
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Info("daemon stop requested via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	resp.Stopping = true
	if s.onStop != nil {
		go s.onStop()
	}
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	if req.Path == "" {
		return errors.New("submit requires a file path")
	}
	job, err := s.daemon.Submit(req.Path)
	if err != nil {
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) ListJobs(req ListJobsRequest, resp *ListJobsResponse) error {
	wanted := make(map[jobs.Status]struct{}, len(req.Statuses))
	for _, name := range req.Statuses {
		status, ok := jobs.ParseStatus(name)
		if !ok {
			return fmt.Errorf("unknown job status %q", name)
		}
		wanted[status] = struct{}{}
	}
	all := s.daemon.Store().List()
	resp.Jobs = make([]Job, 0, len(all))
	for _, job := range all {
		if len(wanted) > 0 {
			if _, ok := wanted[job.Status]; !ok {
				continue
			}
		}
		resp.Jobs = append(resp.Jobs, job)
	}
	return nil
}

func (s *service) GetJob(req GetJobRequest, resp *GetJobResponse) error {
	job, err := s.daemon.Store().Get(req.ID)
	if err != nil {
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) CancelJob(req CancelJobRequest, resp *CancelJobResponse) error {
	job, err := s.daemon.Cancel(req.ID)
	if err != nil {
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) DeleteJob(req DeleteJobRequest, resp *DeleteJobResponse) error {
	if err := s.daemon.Delete(req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) JobLog(req JobLogRequest, resp *JobLogResponse) error {
	job, err := s.daemon.Store().Get(req.ID)
	if err != nil {
		return err
	}
	lines := job.Log
	if req.Tail > 0 && len(lines) > req.Tail {
		lines = lines[len(lines)-req.Tail:]
	}
	resp.Lines = append([]string(nil), lines...)
	return nil
}

func (s *service) GetSegments(req GetSegmentsRequest, resp *GetSegmentsResponse) error {
	segments, err := s.daemon.Segments(req.ID)
	if err != nil {
		return err
	}
	resp.Segments = segments
	return nil
}

func (s *service) GetClip(req GetClipRequest, resp *GetClipResponse) error {
	path, err := s.daemon.Clip(context.Background(), req.ID, req.StartSec, req.EndSec)
	if err != nil {
		return err
	}
	resp.Path = path
	return nil
}

func (s *service) Summarize(req SummarizeRequest, resp *SummarizeResponse) error {
	job, err := s.daemon.Summarize(context.Background(), req.ID, req.Force)
	if err != nil {
		return err
	}
	resp.Job = job
	return nil
}

func (s *service) ArtifactStatuses(_ ArtifactStatusesRequest, resp *ArtifactStatusesResponse) error {
	resp.Statuses = s.daemon.Artifacts().Statuses()
	return nil
}

func (s *service) StartArtifactDownload(req StartArtifactDownloadRequest, resp *StartArtifactDownloadResponse) error {
	status, err := s.daemon.Artifacts().StartDownload(req.ID, req.SourceURL)
	if err != nil {
		return err
	}
	resp.Status = status
	return nil
}

func (s *service) FetchEvents(req FetchEventsRequest, resp *FetchEventsResponse) error {
	ctx := context.Background()
	wait := req.WaitMillis > 0
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.WaitMillis)*time.Millisecond)
		defer cancel()
	}
	events, next, err := s.daemon.Hub().Fetch(ctx, req.Since, req.Limit, wait)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) TailEvents(req TailEventsRequest, resp *TailEventsResponse) error {
	events, next := s.daemon.Hub().Tail(req.Limit)
	resp.Events = events
	resp.Next = next
	return nil
}
