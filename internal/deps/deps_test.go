package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fileconv/internal/logging"
	"fileconv/internal/runner"
	"fileconv/internal/services"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

// prependPath keeps system utilities such as sleep reachable from stubs.
func prependPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func noEnv(string) (string, bool) { return "", false }

func newTestResolver(opts ...Option) *Resolver {
	base := []Option{WithLookupEnv(noEnv), WithProbeTimeout(2 * time.Second)}
	return NewResolver(runner.New(time.Minute, logging.NewNop()), append(base, opts...)...)
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := writeStub(t, binDir, "present", "exit 0")
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestResolvePrefersFirstInstalledCandidate(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "convert", `echo "Version: ImageMagick 6.9"`)
	t.Setenv("PATH", binDir)

	r := newTestResolver()
	tool, err := r.Resolve(context.Background(), ImageConvert)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if filepath.Base(tool.Path) != "convert" {
		t.Fatalf("expected convert fallback candidate, got %s", tool.Path)
	}
	if tool.Version != "Version: ImageMagick 6.9" {
		t.Fatalf("unexpected version %q", tool.Version)
	}
}

func TestResolveEnvOverrideWins(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "tesseract", "echo system")
	custom := writeStub(t, t.TempDir(), "my-tesseract", "echo custom")
	t.Setenv("PATH", binDir)

	r := newTestResolver(WithLookupEnv(func(key string) (string, bool) {
		if key == "FILECONV_TESSERACT" {
			return custom, true
		}
		return "", false
	}))
	tool, err := r.Resolve(context.Background(), OCR)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tool.Path != custom {
		t.Fatalf("expected env override %s, got %s", custom, tool.Path)
	}
}

func TestResolveConfigOverride(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	custom := writeStub(t, t.TempDir(), "zip-custom", "echo zip 3.0")

	r := newTestResolver(WithOverrides(map[Capability]string{Zip: custom}))
	tool, err := r.Resolve(context.Background(), Zip)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tool.Path != custom {
		t.Fatalf("expected config override %s, got %s", custom, tool.Path)
	}
}

func TestResolveUnavailableNamesTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	r := newTestResolver()
	_, err := r.Resolve(context.Background(), OfficeConvert)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	msg := services.FailureMessage(err)
	for _, want := range []string{"soffice", "libreoffice", "FILECONV_SOFFICE"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
	if r.Probes() != 0 {
		t.Fatalf("expected no probes for missing binaries, got %d", r.Probes())
	}
}

func TestResolveBrokenToolPropagates(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "pdftoppm", `echo "libpoppler missing" >&2; exit 127`)
	t.Setenv("PATH", binDir)

	r := newTestResolver()
	_, err := r.Resolve(context.Background(), PDFRender)
	if !errors.Is(err, services.ErrToolFailed) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	if errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("broken tool must not be reported as unavailable: %v", err)
	}
}

func TestResolveProbeTimeout(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "zbarimg", "sleep 30")
	prependPath(t, binDir)

	r := newTestResolver(WithProbeTimeout(200 * time.Millisecond))
	_, err := r.Resolve(context.Background(), BarcodeDecode)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestMarkerForDeadline(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{context.DeadlineExceeded, services.ErrTimeout},
		{services.Wrap(services.ErrTimeout, "runner", "zbarimg", "did not finish", nil), services.ErrTimeout},
		{errors.New("exit status 2"), services.ErrToolFailed},
	}
	for _, tc := range cases {
		if got := markerFor(tc.err); got != tc.want {
			t.Fatalf("markerFor(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestResolveConcurrentCallsProbeOnce(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "rsvg-convert", "sleep 0.2; echo rsvg-convert 2.58")
	prependPath(t, binDir)

	r := newTestResolver()
	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), SVGRasterize); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Resolve: %v", err)
	}
	if got := r.Probes(); got != 1 {
		t.Fatalf("expected exactly one probe, got %d", got)
	}

	if _, err := r.Resolve(context.Background(), SVGRasterize); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := r.Probes(); got != 1 {
		t.Fatalf("expected memoized result, got %d probes", got)
	}
}

func TestResolveMemoizesUnavailable(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("PATH", emptyDir)

	r := newTestResolver()
	if r.Available(context.Background(), Python) {
		t.Fatal("expected python to be unavailable")
	}
	writeStub(t, emptyDir, "python3", "echo Python 3.12")
	if r.Available(context.Background(), Python) {
		t.Fatal("expected unavailable outcome to be memoized")
	}
}

func TestReportMarksFallbacksOptional(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "zip", "echo zip 3.0")
	t.Setenv("PATH", binDir)

	statuses := Report(context.Background(), newTestResolver())
	byName := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
	}
	if !byName["zip"].Available {
		t.Fatalf("expected zip available, got %#v", byName["zip"])
	}
	office := byName["office-convert"]
	if office.Available || office.Optional {
		t.Fatalf("expected office-convert required and missing, got %#v", office)
	}
	ocr := byName["ocr"]
	if !ocr.Optional || !strings.Contains(ocr.Detail, "cloud OCR") {
		t.Fatalf("expected ocr optional with fallback detail, got %#v", ocr)
	}
}

func TestRequirementsHonourOverrides(t *testing.T) {
	reqs := Requirements(map[Capability]string{OfficeConvert: "/opt/lo/soffice"})
	var office []Requirement
	for _, req := range reqs {
		if req.Name == string(OfficeConvert) {
			office = append(office, req)
		}
	}
	if len(office) != 1 || office[0].Command != "/opt/lo/soffice" {
		t.Fatalf("unexpected office requirements: %#v", office)
	}
}

func TestParseCapability(t *testing.T) {
	if c, err := ParseCapability(" OCR "); err != nil || c != OCR {
		t.Fatalf("ParseCapability: %v %v", c, err)
	}
	if _, err := ParseCapability("teleport"); err == nil {
		t.Fatal("expected error for unknown capability")
	}
}
