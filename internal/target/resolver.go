package target

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"fnprobe/pkg/logging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

// lambdaTimeLayout is the format of FunctionConfiguration.LastModified.
const lambdaTimeLayout = "2006-01-02T15:04:05.000-0700"

// LambdaAPI is the subset of the Lambda client used by the resolver.
type LambdaAPI interface {
	lambda.ListFunctionsAPIClient
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
}

// Resolver locates the function under test.
type Resolver struct {
	client LambdaAPI
}

// NewResolver creates a resolver over client.
func NewResolver(client LambdaAPI) *Resolver {
	return &Resolver{client: client}
}

// Resolve finds the target function. An explicit selector (a name or ARN) is
// read directly; otherwise deployed functions are listed and the first one
// whose name matches the pattern is picked. Listing order comes from the
// backend's pagination, so callers should prefer exact names when more than
// one function matches.
func (r *Resolver) Resolve(ctx context.Context, selector string, explicit bool) (*FunctionTarget, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, &NotFoundError{Selector: selector, Explicit: explicit, Err: errors.New("empty selector")}
	}

	name := selector
	if !explicit {
		match, err := r.findByPattern(ctx, selector)
		if err != nil {
			return nil, err
		}
		name = match
	}

	out, err := r.client.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Selector: selector, Explicit: explicit, Err: err}
		}
		return nil, &AccessError{Function: name, Err: err}
	}

	t := fromConfiguration(out)
	logging.Info("Resolver", "Resolved target %s (runtime %s, %d MB, timeout %ds)", t.Name, t.Runtime, t.MemoryMB, t.TimeoutSeconds)
	return t, nil
}

func (r *Resolver) findByPattern(ctx context.Context, pattern string) (string, error) {
	var matches []string
	total := 0

	p := lambda.NewListFunctionsPaginator(r.client, &lambda.ListFunctionsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			total++
			fnName := aws.ToString(fn.FunctionName)
			if Matches(pattern, fnName) {
				matches = append(matches, fnName)
			}
		}
	}

	if len(matches) == 0 {
		return "", &NotFoundError{Selector: pattern, Candidates: total}
	}
	if len(matches) > 1 {
		logging.Warn("Resolver", "Pattern %q matched %d functions (%s); using %s. Set an explicit function name for a stable choice.",
			pattern, len(matches), strings.Join(matches, ", "), matches[0])
	}
	return matches[0], nil
}

// VerifyAccess reports whether the target's configuration can still be read.
func (r *Resolver) VerifyAccess(ctx context.Context, t *FunctionTarget) bool {
	_, err := r.client.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(t.Identifier()),
	})
	if err != nil {
		logging.Warn("Resolver", "Access check for %s failed: %v", t.Name, err)
		return false
	}
	return true
}

// Matches reports whether name is selected by pattern: a glob when pattern
// contains any of "*?[", a substring match otherwise.
func Matches(pattern, name string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
	return strings.Contains(name, pattern)
}

func fromConfiguration(out *lambda.GetFunctionConfigurationOutput) *FunctionTarget {
	t := &FunctionTarget{
		Name:           aws.ToString(out.FunctionName),
		ARN:            aws.ToString(out.FunctionArn),
		Runtime:        string(out.Runtime),
		MemoryMB:       aws.ToInt32(out.MemorySize),
		TimeoutSeconds: aws.ToInt32(out.Timeout),
		Version:        aws.ToString(out.Version),
	}
	if ts, err := time.Parse(lambdaTimeLayout, aws.ToString(out.LastModified)); err == nil {
		t.LastModified = ts.UTC()
	}
	return t
}
