package pkg

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

// Mailer 基于 gomail 的发信器
type Mailer struct {
	cfg  SMTPConfig
	dial func(m *gomail.Message) error
}

func NewMailer(cfg SMTPConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &Mailer{cfg: cfg, dial: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

// Enabled 未配置 SMTP 主机时不发信
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dial(msg)
}

// VerificationResultHTML 认证审核结果邮件正文
func VerificationResultHTML(username string, approved bool) string {
	result := "未通过"
	if approved {
		result = "已通过"
	}
	return fmt.Sprintf(`<p>%s，您好：</p><p>您提交的身份认证申请<b>%s</b>审核。</p>`, html.EscapeString(username), result)
}
