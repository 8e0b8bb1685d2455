package translate

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/regions"
	tmt "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tmt/v20180321"
)

// Translator 文本翻译接口，歌词行的翻译增强使用
type Translator interface {
	TranslateText(text string) (string, error)
}

// Client 腾讯云TMT翻译客户端
type Client struct {
	tmtClient *tmt.Client
}

var _ Translator = (*Client)(nil)

// NewClient 创建腾讯云翻译客户端
func NewClient(secretID, secretKey string) (*Client, error) {
	credential := common.NewCredential(secretID, secretKey)

	tmtClient, err := tmt.NewClient(credential, regions.Guangzhou, profile.NewClientProfile())
	if err != nil {
		log.Error().Err(err).Msg("new tencent tmt client error")
		return nil, err
	}
	return &Client{tmtClient: tmtClient}, nil
}

// TranslateText 自动检测语言并翻译：中文译英文，其他语言译中文
func (c *Client) TranslateText(text string) (string, error) {
	id := int64(0)

	languageRequest := tmt.NewLanguageDetectRequest()
	languageRequest.Text = &text
	languageRequest.ProjectId = &id
	languageResponse, err := c.tmtClient.LanguageDetect(languageRequest)
	if err != nil {
		return "", fmt.Errorf("language detect failed: %w", err)
	}
	lang := *languageResponse.Response.Lang

	var tar string
	if lang == "zh" {
		tar = "en"
	} else {
		tar = "zh"
	}

	request := tmt.NewTextTranslateRequest()
	request.Source = &lang
	request.SourceText = &text
	request.Target = &tar
	request.ProjectId = &id
	response, err := c.tmtClient.TextTranslate(request)
	if err != nil {
		log.Error().Err(err).Msg("failed to send translate request")
		return "", err
	}

	return *response.Response.TargetText, nil
}
