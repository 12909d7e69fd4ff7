package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	urlsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "url_shortener_urls_created_total",
		Help: "Total number of short urls created.",
	})

	redirectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "url_shortener_redirects_total",
		Help: "Total number of redirects served.",
	})
)
