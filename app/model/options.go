package model

import (
	"fmt"
	"slices"

	"golang.org/x/text/language"
)

// 生成选项默认值
const (
	DefaultLanguage = "en"
	DefaultQuality  = "hd"
	DefaultVoice    = "default"
)

// SupportedLanguages 支持的讲解语言
var SupportedLanguages = []language.Tag{
	language.English,
	language.MustParse("yo"), // 约鲁巴语
	language.MustParse("ig"), // 伊博语
	language.MustParse("ha"), // 豪萨语
}

// QualityOptions 清晰度选项
var QualityOptions = []string{"sd", "hd", "fullhd"}

// VoiceOptions 配音选项
var VoiceOptions = []string{
	"default",
	"female-nigerian",
	"male-nigerian",
	"female-british",
	"male-british",
}

// GenerateOptions 生成演示的可选参数
type GenerateOptions struct {
	Language string `json:"language"`
	Quality  string `json:"quality"`
	Voice    string `json:"voice"`
}

// WithDefaults 为空字段填充默认值
func (o GenerateOptions) WithDefaults() GenerateOptions {
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.Quality == "" {
		o.Quality = DefaultQuality
	}
	if o.Voice == "" {
		o.Voice = DefaultVoice
	}
	return o
}

// Validate 校验选项取值，语言统一为规范的 BCP 47 写法
func (o *GenerateOptions) Validate() error {
	tag, err := language.Parse(o.Language)
	if err != nil {
		return fmt.Errorf("无效的语言代码 %q: %w", o.Language, err)
	}
	base, _ := tag.Base()
	supported := false
	for _, t := range SupportedLanguages {
		b, _ := t.Base()
		if b == base {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("不支持的语言: %s", o.Language)
	}
	o.Language = base.String()

	if !slices.Contains(QualityOptions, o.Quality) {
		return fmt.Errorf("不支持的清晰度: %s", o.Quality)
	}
	if !slices.Contains(VoiceOptions, o.Voice) {
		return fmt.Errorf("不支持的配音: %s", o.Voice)
	}
	return nil
}

// GenerateRequest POST /generate 请求体
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
	Quality  string `json:"quality"`
	Voice    string `json:"voice"`
}

// GenerateResponse POST /generate 响应体
type GenerateResponse struct {
	DemoID string `json:"demo_id"`
}

// ShareResponse POST /demo/{id}/share 响应体
type ShareResponse struct {
	ShareURL string `json:"share_url"`
}

// Credits 用户剩余额度
type Credits struct {
	Remaining int    `json:"remaining"`
	Total     int    `json:"total"`
	Plan      string `json:"plan"`
}
