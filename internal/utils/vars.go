package utils

import (
	"errors"
	"time"
)

const (
	DefaultChunkSize = 8192
	DefaultTimeout   = 10 * time.Second
	LogFile          = ".radiograb.log"
	TempDirName      = ".radiograb-temp"
	ToolUserAgent    = "radiograb/1.0"
	streamRecvBuffer = 256 * 1024
)

const (
	QualityHigh   = "192kbps"
	QualityMid    = "128kbps"
	QualityCustom = "custom"
)

const (
	DefaultHighURL = "https://bytefm--di--nacs-ice-01--02--cdn.cast.addradio.de/bytefm/main/high/stream.mp3"
	DefaultMidURL  = "https://bytefm--di--nacs-ice-01--02--cdn.cast.addradio.de/bytefm/main/mid/stream.mp3"
)

var ErrUnknownQuality = errors.New("unknown stream quality")

var qualityAliases = map[string]string{
	"high":    QualityHigh,
	"192":     QualityHigh,
	"192kbps": QualityHigh,
	"mid":     QualityMid,
	"128":     QualityMid,
	"128kbps": QualityMid,
}

// Local-only User-Agent list
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:135.0) Gecko/20100101 Firefox/135.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.3 Safari/605.1.15",
	"VLC/3.0.21 LibVLC/3.0.21",
	"curl/7.88.1",
	"Wget/1.21.4",
}
