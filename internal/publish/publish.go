// Package publish uploads a generated Allure report tree to an S3-compatible
// bucket so a CI run can link to it.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
	"github.com/kuitang/hrm-ui-suite/internal/s3client"
)

// LatestKey is the object, under the prefix, that points at the newest run.
const LatestKey = "latest.json"

const (
	cacheNoStore   = "no-cache"
	cacheImmutable = "public, max-age=86400"
)

func logger() *slog.Logger { return obs.Pkg("publish") }

// Publisher uploads reports under <prefix>/<run-id>/.
type Publisher struct {
	client *s3client.Client
	prefix string
	now    func() time.Time
}

// New returns a publisher writing under prefix (may be empty).
func New(client *s3client.Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Result describes one published report.
type Result struct {
	RunID       string    `json:"run_id"`
	Files       int       `json:"files"`
	Bytes       int64     `json:"bytes"`
	IndexURL    string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// ValidateRunID rejects ids that would escape the run directory.
func ValidateRunID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("invalid run id %q", runID))
	}
	return nil
}

// UploadDir uploads every file of dir (an `allure generate` output) and then
// updates latest.json. dir must contain index.html.
func (p *Publisher) UploadDir(ctx context.Context, dir, runID string) (*Result, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return nil, errs.Wrap(errs.NotFound, fmt.Sprintf("no report in %s (missing index.html)", dir), err)
	}

	res := &Result{RunID: runID}
	err := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, file)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return errs.Wrap(errs.Internal, fmt.Sprintf("read %s", file), err)
		}
		key := p.runKey(runID, filepath.ToSlash(rel))
		if err := p.client.PutObject(ctx, key, data, s3client.PutOptions{
			ContentType:  ContentType(rel),
			CacheControl: cacheControl(rel),
		}); err != nil {
			return err
		}
		res.Files++
		res.Bytes += int64(len(data))
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.IndexURL = p.client.GetPublicURL(p.runKey(runID, "index.html"))
	res.PublishedAt = p.now().UTC()

	latest, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "encode latest.json", err)
	}
	if err := p.client.PutObject(ctx, p.key(LatestKey), latest, s3client.PutOptions{
		ContentType:  "application/json",
		CacheControl: cacheNoStore,
	}); err != nil {
		return nil, err
	}

	logger().Info("report published",
		"bucket", p.client.BucketName(),
		"run_id", runID,
		"files", res.Files,
		"bytes", res.Bytes,
		"url", res.IndexURL,
	)
	return res, nil
}

// Latest returns the newest published run recorded in latest.json.
func (p *Publisher) Latest(ctx context.Context) (*Result, error) {
	data, _, err := p.client.GetObject(ctx, p.key(LatestKey))
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errs.Wrap(errs.Internal, "decode latest.json", err)
	}
	return &res, nil
}

// Runs lists published run ids, oldest first (see runLess).
func (p *Publisher) Runs(ctx context.Context) ([]string, error) {
	keys, err := p.client.ListKeys(ctx, p.key(""))
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var runs []string
	for _, k := range keys {
		rest := strings.TrimPrefix(k, p.key(""))
		i := strings.IndexByte(rest, '/')
		if i <= 0 {
			continue
		}
		id := rest[:i]
		if !seen[id] {
			seen[id] = true
			runs = append(runs, id)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runLess(runs[i], runs[j]) })
	return runs, nil
}

// runLess orders run ids segment by segment on '-', comparing all-digit
// segments numerically. CI run ids ("9999999999" < "10000000000"), retried
// runs ("123" < "123-2") and timestamps ("20261016-083005") all sort by age.
func runLess(a, b string) bool {
	as, bs := strings.Split(a, "-"), strings.Split(b, "-")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, y := as[i], bs[i]
		if x == y {
			continue
		}
		if isDigits(x) && isDigits(y) {
			x, y = strings.TrimLeft(x, "0"), strings.TrimLeft(y, "0")
			if len(x) != len(y) {
				return len(x) < len(y)
			}
		}
		return x < y
	}
	return len(as) < len(bs)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Prune deletes all but the newest keep runs in runLess order. The run
// latest.json points at is never deleted. It returns the deleted run ids.
func (p *Publisher) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 1 {
		return nil, errs.New(errs.InvalidArgument, "prune must keep at least one run")
	}
	runs, err := p.Runs(ctx)
	if err != nil {
		return nil, err
	}
	if len(runs) <= keep {
		return nil, nil
	}
	var current string
	if latest, err := p.Latest(ctx); err == nil {
		current = latest.RunID
	} else if !errs.Is(err, errs.NotFound) {
		return nil, err
	}

	var stale []string
	for _, id := range runs[:len(runs)-keep] {
		if id == current {
			logger().Warn("keeping run referenced by latest.json", "run_id", id)
			continue
		}
		stale = append(stale, id)
	}
	for _, id := range stale {
		keys, err := p.client.ListKeys(ctx, p.runKey(id, ""))
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if err := p.client.DeleteObject(ctx, k); err != nil {
				return nil, err
			}
		}
		logger().Info("pruned report", "run_id", id, "objects", len(keys))
	}
	return stale, nil
}

// RunIDFor picks the run id for a publish: the explicit id, else the CI run
// id, else a UTC timestamp.
func RunIDFor(explicit string, getenv func(string) string, now time.Time) string {
	if explicit != "" {
		return explicit
	}
	if id := getenv("GITHUB_RUN_ID"); id != "" {
		if attempt := getenv("GITHUB_RUN_ATTEMPT"); attempt != "" && attempt != "1" {
			return id + "-" + attempt
		}
		return id
	}
	return now.UTC().Format("20060102-150405")
}

// ContentType returns the MIME type for a report file name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filepath.ToSlash(name)))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func cacheControl(rel string) string {
	switch {
	case filepath.Base(rel) == "index.html", strings.HasSuffix(rel, ".json"):
		return cacheNoStore
	default:
		return cacheImmutable
	}
}

func (p *Publisher) key(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "/" + name
}

func (p *Publisher) runKey(runID, rel string) string {
	return p.key(runID + "/" + rel)
}
