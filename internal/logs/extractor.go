package logs

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"fnprobe/internal/invoke"
	"fnprobe/internal/target"
	"fnprobe/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// maxEvents caps a single window query.
const maxEvents = 10000

// Extractor pulls function logs from CloudWatch Logs.
type Extractor struct {
	client   cloudwatchlogs.FilterLogEventsAPIClient
	logGroup string
}

// NewExtractor creates an extractor. logGroup overrides the function's
// default /aws/lambda/<name> group when non-empty.
func NewExtractor(client cloudwatchlogs.FilterLogEventsAPIClient, logGroup string) *Extractor {
	return &Extractor{client: client, logGroup: logGroup}
}

// DefaultWindow returns the window covering the last lookback before now.
func DefaultWindow(now time.Time, lookback time.Duration) (time.Time, time.Time) {
	return now.Add(-lookback), now
}

// QueryWindow collects every log event of the target between start and end.
// A backend failure is returned as *ExtractionError.
func (x *Extractor) QueryWindow(ctx context.Context, t *target.FunctionTarget, start, end time.Time) (*Bundle, error) {
	group := x.logGroup
	if group == "" {
		group = t.LogGroup()
	}

	bundle := &Bundle{
		LogGroup: group,
		Start:    start.UTC(),
		End:      end.UTC(),
		Entries:  []Entry{},
		Counts:   newCounts(),
	}

	p := cloudwatchlogs.NewFilterLogEventsPaginator(x.client, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(group),
		StartTime:    aws.Int64(start.UnixMilli()),
		EndTime:      aws.Int64(end.UnixMilli()),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, &ExtractionError{LogGroup: group, Err: err}
		}
		for _, ev := range page.Events {
			bundle.add(Entry{
				Timestamp: time.UnixMilli(aws.ToInt64(ev.Timestamp)).UTC(),
				Message:   strings.TrimRight(aws.ToString(ev.Message), "\n"),
				Stream:    aws.ToString(ev.LogStreamName),
			})
		}
		if len(bundle.Entries) >= maxEvents {
			logging.Warn("LogExtractor", "Stopping after %d events from %s", len(bundle.Entries), group)
			break
		}
	}

	sort.SliceStable(bundle.Entries, func(i, j int) bool {
		return bundle.Entries[i].Timestamp.Before(bundle.Entries[j].Timestamp)
	})

	logging.Info("LogExtractor", "Collected %d log lines from %s (ERROR %d, WARN %d, INFO %d)",
		len(bundle.Entries), group, bundle.Counts[string(SeverityError)], bundle.Counts[string(SeverityWarn)], bundle.Counts[string(SeverityInfo)])
	return bundle, nil
}

// CaptureImmediate decodes the log excerpt returned inline with an invocation.
func CaptureImmediate(outcome invoke.Outcome) string {
	if outcome.LogTail == "" {
		return ""
	}
	data, err := base64.StdEncoding.DecodeString(outcome.LogTail)
	if err != nil {
		logging.Debug("LogExtractor", "Inline log tail is not base64: %v", err)
		return ""
	}
	return string(data)
}

// BundleFromText builds a bundle from raw log text such as an inline tail.
// Lines carry no timestamps and keep their order.
func BundleFromText(logGroup, text string) *Bundle {
	bundle := &Bundle{LogGroup: logGroup, Entries: []Entry{}, Counts: newCounts()}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		bundle.add(Entry{Message: line})
	}
	return bundle
}

// Classify returns the severity of a log line by substring match, checking
// the most severe bucket first.
func Classify(message string) Severity {
	upper := strings.ToUpper(message)
	switch {
	case strings.Contains(upper, string(SeverityError)):
		return SeverityError
	case strings.Contains(upper, string(SeverityWarn)):
		return SeverityWarn
	case strings.Contains(upper, string(SeverityInfo)):
		return SeverityInfo
	default:
		return SeverityNone
	}
}

func (b *Bundle) add(e Entry) {
	e.Severity = Classify(e.Message)
	if e.Severity != SeverityNone {
		b.Counts[string(e.Severity)]++
	}
	b.Entries = append(b.Entries, e)
}

func newCounts() map[string]int {
	return map[string]int{
		string(SeverityInfo):  0,
		string(SeverityWarn):  0,
		string(SeverityError): 0,
	}
}
