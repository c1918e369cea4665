// examwalk is a smoke-test client for a running gateway: it begins an
// attempt, answers the first question of every module, and submits until the
// attempt completes, printing each phase transition. Useful for verifying a
// deployment end to end without the web frontend.
//
// Usage:
//
//	examwalk -gateway http://localhost:8080 -exam <exam-uuid>
//
// The student bearer token is read from EXAMWALK_TOKEN or prompted for
// without echo.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/term"
)

type projection struct {
	Phase   string `json:"phase"`
	Attempt *struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"attempt"`
	Module *struct {
		SectionType   string `json:"section_type"`
		ModuleOrder   int    `json:"module_order"`
		QuestionCount int    `json:"question_count"`
	} `json:"module"`
	Questions []struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Options []struct {
			Letter string `json:"letter"`
		} `json:"options"`
	} `json:"questions"`
	RemainingSeconds int `json:"remaining_seconds"`
	Results          *struct {
		TotalScore int `json:"total_score"`
		MaxScore   int `json:"max_score"`
	} `json:"results"`
	Error *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	gateway := flag.String("gateway", "http://localhost:8080", "gateway base URL")
	examID := flag.String("exam", "", "exam UUID (required)")
	flag.Parse()

	if *examID == "" {
		fmt.Fprintln(os.Stderr, "examwalk: -exam is required")
		os.Exit(1)
	}

	token := os.Getenv("EXAMWALK_TOKEN")
	if token == "" {
		fmt.Print("Student bearer token: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "examwalk: read token: %v\n", err)
			os.Exit(1)
		}
		token = string(raw)
	}

	client := resty.New().
		SetBaseURL(*gateway+"/api/v1/student/exams/"+*examID).
		SetAuthToken(token).
		SetTimeout(15 * time.Second)

	proj, err := call(client, "POST", "/attempt")
	if err != nil {
		fatal("begin attempt", err)
	}
	report(proj)

	for i := 0; i < 12; i++ { // 4 modules + break + slack
		switch proj.Phase {
		case "IN_MODULE":
			if len(proj.Questions) > 0 {
				q := proj.Questions[0]
				value := "42"
				if len(q.Options) > 0 {
					value = q.Options[0].Letter
				}
				body := map[string]interface{}{"question_id": q.ID, "value": value}
				if _, err := callBody(client, "POST", "/answers", body); err != nil {
					fatal("answer", err)
				}
				if _, err := callBody(client, "POST", "/flags", map[string]interface{}{"question_id": q.ID}); err != nil {
					fatal("flag", err)
				}
			}
			proj, err = call(client, "POST", "/submit-module")
			if err != nil {
				fatal("submit module", err)
			}

		case "ON_BREAK":
			proj, err = call(client, "POST", "/resume")
			if err != nil {
				fatal("resume", err)
			}

		case "COMPLETED":
			if proj.Results != nil {
				fmt.Printf("completed: %d/%d\n", proj.Results.TotalScore, proj.Results.MaxScore)
			}
			return

		case "ERROR":
			if proj.Error != nil {
				fatal("session", fmt.Errorf("%s: %s", proj.Error.Code, proj.Error.Message))
			}
			fatal("session", fmt.Errorf("unknown session error"))

		default:
			proj, err = call(client, "GET", "/state")
			if err != nil {
				fatal("state", err)
			}
		}
		report(proj)
	}

	fatal("walk", fmt.Errorf("attempt did not complete within the step budget"))
}

func call(client *resty.Client, method, path string) (*projection, error) {
	return callBody(client, method, path, nil)
}

func callBody(client *resty.Client, method, path string, body interface{}) (*projection, error) {
	req := client.R()
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return nil, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}

	var proj projection
	if err := json.Unmarshal(env.Data, &proj); err != nil {
		return nil, fmt.Errorf("decode projection: %w", err)
	}
	return &proj, nil
}

func report(p *projection) {
	if p.Module != nil {
		fmt.Printf("phase=%s section=%s module=%d questions=%d remaining=%ds\n",
			p.Phase, p.Module.SectionType, p.Module.ModuleOrder, p.Module.QuestionCount, p.RemainingSeconds)
		return
	}
	fmt.Printf("phase=%s remaining=%ds\n", p.Phase, p.RemainingSeconds)
}

func fatal(op string, err error) {
	fmt.Fprintf(os.Stderr, "examwalk: %s: %v\n", op, err)
	os.Exit(1)
}
