package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"github.com/labstack/gommon/log"
)

// Login runs the web client's onboarding task flow with the configured
// credential triple. On success the jar holds a full session (auth_token,
// ct0) ready for authenticated calls.
func (c *Client) Login(ctx context.Context) error {
	// Drop any stale session before starting a fresh flow.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}
	c.http.Jar = jar

	if err := c.activateGuestToken(ctx); err != nil {
		return err
	}

	flow, err := c.startLoginFlow(ctx)
	if err != nil {
		return err
	}

	// The flow is a server-driven subtask loop; answer each round until
	// the success subtask shows up.
	for round := 0; round < 12; round++ {
		if flow.has("LoginSuccessSubtask") {
			c.guestToken = ""
			log.Infof("twitter: login flow completed")
			return nil
		}

		response, err := c.answerSubtask(flow)
		if err != nil {
			return err
		}

		flow, err = c.flowStep(ctx, "", map[string]interface{}{
			"flow_token":     flow.FlowToken,
			"subtask_inputs": []interface{}{response},
		})
		if err != nil {
			return fmt.Errorf("advancing login flow: %w", err)
		}
	}

	return fmt.Errorf("login flow did not complete")
}

func (c *Client) answerSubtask(flow *flowResponse) (map[string]interface{}, error) {
	switch {
	case flow.has("LoginJsInstrumentationSubtask"):
		return map[string]interface{}{
			"subtask_id": "LoginJsInstrumentationSubtask",
			"js_instrumentation": map[string]interface{}{
				"response": "{}",
				"link":     "next_link",
			},
		}, nil

	case flow.has("LoginEnterUserIdentifierSSO"):
		return map[string]interface{}{
			"subtask_id": "LoginEnterUserIdentifierSSO",
			"settings_list": map[string]interface{}{
				"setting_responses": []interface{}{
					map[string]interface{}{
						"key": "user_identifier",
						"response_data": map[string]interface{}{
							"text_data": map[string]interface{}{"result": c.cfg.Username},
						},
					},
				},
				"link": "next_link",
			},
		}, nil

	case flow.has("LoginEnterAlternateIdentifierSubtask"):
		return map[string]interface{}{
			"subtask_id": "LoginEnterAlternateIdentifierSubtask",
			"enter_text": map[string]interface{}{
				"text": c.cfg.Email,
				"link": "next_link",
			},
		}, nil

	case flow.has("LoginEnterPassword"):
		return map[string]interface{}{
			"subtask_id": "LoginEnterPassword",
			"enter_password": map[string]interface{}{
				"password": c.cfg.Password,
				"link":     "next_link",
			},
		}, nil

	case flow.has("AccountDuplicationCheck"):
		return map[string]interface{}{
			"subtask_id": "AccountDuplicationCheck",
			"check_logged_in_account": map[string]interface{}{
				"link": "AccountDuplicationCheck_false",
			},
		}, nil

	case flow.has("DenyLoginSubtask"):
		return nil, fmt.Errorf("login denied by remote")
	case flow.has("LoginAcid"):
		return nil, fmt.Errorf("login requires a confirmation code sent to the account email")
	case flow.has("LoginTwoFactorAuthChallenge"):
		return nil, fmt.Errorf("two-factor authentication is enabled on the account and is not supported")
	}

	return nil, fmt.Errorf("login flow stuck on unknown subtasks %v", flow.subtaskIDs())
}

func (c *Client) activateGuestToken(ctx context.Context) error {
	var out struct {
		GuestToken string `json:"guest_token"`
	}
	if err := c.call(ctx, http.MethodPost, c.apiBase+"/guest/activate.json", nil, "", nil, &out); err != nil {
		return fmt.Errorf("activating guest token: %w", err)
	}
	if out.GuestToken == "" {
		return fmt.Errorf("guest token missing from activation response")
	}
	c.guestToken = out.GuestToken
	return nil
}

func (c *Client) startLoginFlow(ctx context.Context) (*flowResponse, error) {
	payload := map[string]interface{}{
		"input_flow_data": map[string]interface{}{
			"flow_context": map[string]interface{}{
				"debug_overrides": map[string]interface{}{},
				"start_location":  map[string]interface{}{"location": "splash_screen"},
			},
		},
	}
	flow, err := c.flowStep(ctx, "?flow_name=login", payload)
	if err != nil {
		return nil, fmt.Errorf("starting login flow: %w", err)
	}
	return flow, nil
}

type flowResponse struct {
	FlowToken string `json:"flow_token"`
	Status    string `json:"status"`
	Subtasks  []struct {
		SubtaskID string `json:"subtask_id"`
	} `json:"subtasks"`
}

func (f *flowResponse) has(subtaskID string) bool {
	for _, subtask := range f.Subtasks {
		if subtask.SubtaskID == subtaskID {
			return true
		}
	}
	return false
}

func (f *flowResponse) subtaskIDs() []string {
	ids := make([]string, 0, len(f.Subtasks))
	for _, subtask := range f.Subtasks {
		ids = append(ids, subtask.SubtaskID)
	}
	return ids
}

func (c *Client) flowStep(ctx context.Context, query string, payload interface{}) (*flowResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding flow payload: %w", err)
	}
	flow := &flowResponse{}
	if err := c.call(ctx, http.MethodPost, c.apiBase+"/onboarding/task.json"+query, body, "application/json", nil, flow); err != nil {
		return nil, err
	}
	if flow.FlowToken == "" {
		return nil, fmt.Errorf("flow token missing from response")
	}
	return flow, nil
}
