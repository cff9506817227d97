package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const createTweetQueryID = "SoVnbfCycZ7fERGCwpZkYA"

// Feature switches the CreateTweet GraphQL endpoint insists on receiving.
var createTweetFeatures = map[string]bool{
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                false,
	"tweet_awards_web_tipping_enabled":                                        false,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"verified_phone_label_enabled":                                            false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_enhance_cards_enabled":                                    false,
}

// legacy created_at format, e.g. "Mon Jan 15 10:30:00 +0000 2024".
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

type Tweet struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

type createTweetResponse struct {
	Data struct {
		CreateTweet struct {
			TweetResults struct {
				Result struct {
					RestID string `json:"rest_id"`
					Legacy struct {
						FullText  string `json:"full_text"`
						CreatedAt string `json:"created_at"`
					} `json:"legacy"`
				} `json:"result"`
			} `json:"tweet_results"`
		} `json:"create_tweet"`
	} `json:"data"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CreateTweet publishes a tweet, optionally attaching uploaded media and
// replying to an existing tweet.
func (c *Client) CreateTweet(ctx context.Context, text string, mediaIDs []string, replyTo string) (*Tweet, error) {
	entities := make([]interface{}, 0, len(mediaIDs))
	for _, mediaID := range mediaIDs {
		entities = append(entities, map[string]interface{}{
			"media_id":     mediaID,
			"tagged_users": []interface{}{},
		})
	}

	variables := map[string]interface{}{
		"tweet_text":   text,
		"dark_request": false,
		"media": map[string]interface{}{
			"media_entities":     entities,
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []interface{}{},
	}
	if replyTo != "" {
		variables["reply"] = map[string]interface{}{
			"in_reply_to_tweet_id":   replyTo,
			"exclude_reply_user_ids": []interface{}{},
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"variables": variables,
		"features":  createTweetFeatures,
		"queryId":   createTweetQueryID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding tweet payload: %w", err)
	}

	var out createTweetResponse
	endpoint := c.graphqlBase + "/" + createTweetQueryID + "/CreateTweet"
	if err := c.call(ctx, http.MethodPost, endpoint, payload, "application/json", nil, &out); err != nil {
		return nil, err
	}
	// GraphQL reports application errors in a 200 body.
	if len(out.Errors) > 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Code:       out.Errors[0].Code,
			Message:    out.Errors[0].Message,
		}
	}

	result := out.Data.CreateTweet.TweetResults.Result
	if result.RestID == "" {
		return nil, fmt.Errorf("create_tweet response missing tweet id")
	}

	createdAt, err := time.Parse(createdAtLayout, result.Legacy.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	return &Tweet{
		ID:        result.RestID,
		Text:      result.Legacy.FullText,
		CreatedAt: createdAt,
	}, nil
}
