package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdfchat_documents_processed_total",
			Help: "Total number of PDF files turned into session corpora",
		},
	)

	pagesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdfchat_pages_extracted_total",
			Help: "Total number of PDF pages extracted",
		},
	)

	extractionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pdfchat_extraction_failures_total",
			Help: "Total number of processing actions aborted by an unreadable PDF",
		},
	)

	chatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_chat_turns_total",
			Help: "Total number of chat turns by provider and result",
		},
		[]string{"provider", "result"},
	)

	streamFragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdfchat_stream_fragments_total",
			Help: "Total number of streamed response fragments",
		},
		[]string{"provider"},
	)

	turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pdfchat_turn_duration_seconds",
			Help:    "Time from sending a message to the end of the model stream",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)
