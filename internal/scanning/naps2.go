package scanning

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
	"unicode"
)

// PaperScanner drives the NAPS2 console tool to pull pages from a physical
// scanner. It is only available on Windows with NAPS2 installed; everywhere
// else a scan simply returns no pages.
type PaperScanner struct {
	scanRoot string
}

// NewPaperScanner creates a PaperScanner writing scanned images under scanRoot
func NewPaperScanner(scanRoot string) *PaperScanner {
	if scanRoot == "" {
		scanRoot = "scans"
	}
	return &PaperScanner{scanRoot: scanRoot}
}

// findNAPS2 locates NAPS2.Console.exe via PATH or the usual install locations
func findNAPS2() string {
	if path, err := exec.LookPath("NAPS2.Console.exe"); err == nil {
		return path
	}

	home, _ := os.UserHomeDir()
	commonPaths := []string{
		`C:\Program Files\NAPS2\NAPS2.Console.exe`,
		`C:\Program Files (x86)\NAPS2\NAPS2.Console.exe`,
		filepath.Join(home, "AppData", "Local", "NAPS2", "NAPS2.Console.exe"),
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// safeDirName keeps only characters that are safe in a directory name
func safeDirName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}

// Scan runs one scanner pass with the named NAPS2 profile and reads back the
// produced page images. An unsupported platform, a missing tool, or a failed
// scan all degrade to "no pages", never an error.
func (p *PaperScanner) Scan(company, profile string) []Page {
	if runtime.GOOS != "windows" {
		return nil
	}

	naps2Path := findNAPS2()
	if naps2Path == "" {
		slog.Warn("NAPS2.Console.exe not found, skipping scan")
		return nil
	}

	timestamp := time.Now().Format("20060102_150405")
	scanDir := filepath.Join(p.scanRoot, safeDirName(company), timestamp)
	if err := os.MkdirAll(scanDir, 0755); err != nil {
		slog.Warn("Failed to create scan directory", "dir", scanDir, "error", err)
		return nil
	}

	outputPattern := filepath.Join(scanDir, "img-$(n).jpg")
	cmd := exec.Command(naps2Path, "-p", profile, "-o", outputPattern, "--split", "--progress")
	if output, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("NAPS2 scan failed", "profile", profile, "error", err, "output", string(output))
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(scanDir, "img-*.jpg"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var pages []Page
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read scanned page", "path", path, "error", err)
			continue
		}
		pages = append(pages, Page{
			Name:        filepath.Base(path),
			Content:     content,
			ContentType: "image/jpeg",
		})
	}
	return pages
}
