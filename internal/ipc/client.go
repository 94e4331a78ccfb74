package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks daemon liveness.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call(serviceName+".Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call(serviceName+".Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues an audio file for processing.
func (c *Client) Submit(path string) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call(serviceName+".Submit", SubmitRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListJobs returns jobs optionally filtered by status names.
func (c *Client) ListJobs(statuses []string) (*ListJobsResponse, error) {
	var resp ListJobsResponse
	if err := c.client.Call(serviceName+".ListJobs", ListJobsRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetJob returns a single job by id.
func (c *Client) GetJob(id string) (*GetJobResponse, error) {
	var resp GetJobResponse
	if err := c.client.Call(serviceName+".GetJob", GetJobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelJob requests cooperative cancellation of a job.
func (c *Client) CancelJob(id string) (*CancelJobResponse, error) {
	var resp CancelJobResponse
	if err := c.client.Call(serviceName+".CancelJob", CancelJobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteJob removes a job and its working directory.
func (c *Client) DeleteJob(id string) (*DeleteJobResponse, error) {
	var resp DeleteJobResponse
	if err := c.client.Call(serviceName+".DeleteJob", DeleteJobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobLog returns log lines for a job.
func (c *Client) JobLog(id string, tail int) (*JobLogResponse, error) {
	var resp JobLogResponse
	if err := c.client.Call(serviceName+".JobLog", JobLogRequest{ID: id, Tail: tail}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSegments returns a job's normalized transcript segments.
func (c *Client) GetSegments(id string) (*GetSegmentsResponse, error) {
	var resp GetSegmentsResponse
	if err := c.client.Call(serviceName+".GetSegments", GetSegmentsRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetClip extracts (or reuses) a WAV clip of the job audio and returns
// its path.
func (c *Client) GetClip(id string, startSec, endSec float64) (*GetClipResponse, error) {
	var resp GetClipResponse
	req := GetClipRequest{ID: id, StartSec: startSec, EndSec: endSec}
	if err := c.client.Call(serviceName+".GetClip", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Summarize triggers summarization for a finished job.
func (c *Client) Summarize(id string, force bool) (*SummarizeResponse, error) {
	var resp SummarizeResponse
	if err := c.client.Call(serviceName+".Summarize", SummarizeRequest{ID: id, Force: force}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ArtifactStatuses returns download status for all managed artifacts.
func (c *Client) ArtifactStatuses() (*ArtifactStatusesResponse, error) {
	var resp ArtifactStatusesResponse
	if err := c.client.Call(serviceName+".ArtifactStatuses", ArtifactStatusesRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartArtifactDownload begins a background artifact download.
func (c *Client) StartArtifactDownload(id, sourceURL string) (*StartArtifactDownloadResponse, error) {
	var resp StartArtifactDownloadResponse
	req := StartArtifactDownloadRequest{ID: id, SourceURL: sourceURL}
	if err := c.client.Call(serviceName+".StartArtifactDownload", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchEvents returns events after a sequence number, optionally
// waiting for new ones.
func (c *Client) FetchEvents(since uint64, limit, waitMillis int) (*FetchEventsResponse, error) {
	var resp FetchEventsResponse
	req := FetchEventsRequest{Since: since, Limit: limit, WaitMillis: waitMillis}
	if err := c.client.Call(serviceName+".FetchEvents", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TailEvents returns the most recent events.
func (c *Client) TailEvents(limit int) (*TailEventsResponse, error) {
	var resp TailEventsResponse
	if err := c.client.Call(serviceName+".TailEvents", TailEventsRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
