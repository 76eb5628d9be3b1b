package model

const (
	AppServiceName = "bot_report_exporter"
	NamespaceName  = "webitel"
)

var versions = []string{
	"25.10",
	"25.08",
}

var (
	CurrentVersion = versions[0]
)
