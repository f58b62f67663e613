package scrape

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/hazyhaar/sonodraft/study"
)

const fallbackMediaType = "image/jpeg"

// collectImages waits for the clip collection, then downloads the clips in
// discovery order. Clips that fail to download are dropped.
func (s *Scraper) collectImages(ctx context.Context, page Page, opt Options) []study.Image {
	clips := s.awaitClips(ctx, page, opt.PollTimeout)
	candidates := dedupeClips(clips)
	if opt.ImageCap > 0 && len(candidates) > opt.ImageCap {
		candidates = candidates[:opt.ImageCap]
	}

	images := make([]study.Image, 0, len(candidates))
	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if c.Data != "" {
			images = append(images, inlineImage(c))
			continue
		}
		img, err := s.fetchImage(ctx, page, c.URL)
		if err != nil {
			s.log.Debug("scrape: image dropped", "url", c.URL, "error", err)
			continue
		}
		images = append(images, img)
	}
	s.log.Debug("scrape: images collected", "clips", len(clips), "candidates", len(candidates), "images", len(images))
	return images
}

// awaitClips delivers the first non-empty read of the clip collection, or
// nothing once timeout elapses. Reaching the deadline is not an error.
func (s *Scraper) awaitClips(ctx context.Context, src ClipSource, timeout time.Duration) []study.Clip {
	if timeout <= 0 {
		timeout = SinglePollTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply := make(chan []study.Clip, 1)
	go func() { reply <- s.pollClips(ctx, src) }()

	select {
	case clips := <-reply:
		if len(clips) == 0 {
			s.log.Info("scrape: clip collection still empty at deadline", "timeout", timeout)
		}
		return clips
	case <-ctx.Done():
		s.log.Info("scrape: clip collection still empty at deadline", "timeout", timeout)
		return nil
	}
}

func (s *Scraper) pollClips(ctx context.Context, src ClipSource) []study.Clip {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		clips, err := src.Clips(ctx)
		if err != nil {
			s.log.Debug("scrape: clip read failed", "error", err)
		} else if len(clips) > 0 {
			return clips
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// dedupeClips drops clips without content and repeated URLs, keeping the
// first occurrence.
func dedupeClips(clips []study.Clip) []study.Clip {
	seen := make(map[string]bool, len(clips))
	out := make([]study.Clip, 0, len(clips))
	for _, c := range clips {
		switch {
		case c.Data != "":
			out = append(out, c)
		case c.URL != "" && !seen[c.URL]:
			seen[c.URL] = true
			out = append(out, c)
		}
	}
	return out
}

func (s *Scraper) fetchImage(ctx context.Context, f Fetcher, url string) (study.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	res, err := f.Fetch(ctx, url)
	if err != nil {
		return study.Image{}, err
	}
	if len(res.Body) == 0 {
		return study.Image{}, errEmptyBody
	}
	return study.Image{
		Data:      base64.StdEncoding.EncodeToString(res.Body),
		MediaType: mediaType(res.MediaType, res.Body),
	}, nil
}

// inlineImage accepts both bare base64 and data: URLs.
func inlineImage(c study.Clip) study.Image {
	data, mt := c.Data, c.MediaType
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		if meta, payload, found := strings.Cut(rest, ","); found {
			data = payload
			if t, _, _ := strings.Cut(meta, ";"); t != "" {
				mt = t
			}
		}
	}
	if mt == "" {
		mt = fallbackMediaType
	}
	return study.Image{Data: data, MediaType: mt}
}

func mediaType(declared string, body []byte) string {
	if t, _, _ := strings.Cut(declared, ";"); strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	if t, _, _ := strings.Cut(http.DetectContentType(body), ";"); t != "application/octet-stream" && !strings.HasPrefix(t, "text/") {
		return t
	}
	return fallbackMediaType
}
