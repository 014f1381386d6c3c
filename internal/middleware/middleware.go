package middleware

import (
	"net/http"
	"strconv"

	"github.com/plantdex/plantdex/internal/config"
	"github.com/plantdex/plantdex/internal/handlers"
	"github.com/plantdex/plantdex/internal/metrics"
	"github.com/plantdex/plantdex/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var settings config.Settings

// Configure hands the middleware its auth material. Must run before the
// router is built.
func Configure(cfg config.Settings) {
	settings = cfg
}

var (
	UploadArchiveHandler = Wrap(handlers.UploadArchiveHandler)
	GetJobHandler        = Wrap(handlers.GetJobHandler)
	ListJobsHandler      = Wrap(handlers.ListJobsHandler)
	CancelJobHandler     = Wrap(handlers.CancelJobHandler)

	SearchHandler       = Wrap(handlers.SearchHandler)
	AnalogSearchHandler = Wrap(handlers.AnalogSearchHandler)

	CollectionsHandler = Wrap(handlers.CollectionsHandler)
	ReindexHandler     = Wrap(handlers.ReindexHandler)
	WithdrawHandler    = Wrap(handlers.WithdrawHandler)

	UploadDocumentHandler  = Wrap(handlers.UploadDocumentHandler)
	ProcessDocumentHandler = Wrap(handlers.ProcessDocumentHandler)
	GetDocumentHandler     = Wrap(handlers.GetDocumentHandler)

	SpellCheckHandler       = Wrap(handlers.SpellCheckHandler)
	StyleAnalysisHandler    = Wrap(handlers.StyleAnalysisHandler)
	EthicsCheckHandler      = Wrap(handlers.EthicsCheckHandler)
	TerminologyCheckHandler = Wrap(handlers.TerminologyCheckHandler)
	FinalReviewHandler      = Wrap(handlers.FinalReviewHandler)
)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re = injectTrace(re)
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	return re
}
