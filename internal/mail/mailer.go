// Package mail delivers verification codes over SMTP. Settings come from
// the admin-managed register config when present, otherwise from the
// environment config.
package mail

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/taotie8304/lu-gang-connect-project/internal/models"
)

var ErrSMTPNotConfigured = errors.New("smtp is not configured")

type Mailer struct {
	brand string
}

func NewMailer() *Mailer {
	return &Mailer{brand: "鲁港通"}
}

func dialer(smtp models.SMTPConfig) (*gomail.Dialer, error) {
	if smtp.Host == "" || smtp.User == "" || smtp.Pass == "" {
		return nil, ErrSMTPNotConfigured
	}
	port := smtp.Port
	if port == 0 {
		port = 465
	}
	d := gomail.NewDialer(smtp.Host, port, smtp.User, smtp.Pass)
	d.SSL = smtp.Secure
	return d, nil
}

func from(smtp models.SMTPConfig) string {
	if smtp.From != "" {
		return smtp.From
	}
	return smtp.User
}

// SendAuthCode mails a verification code. purposeText is the human label
// shown in the subject line ("注册", "找回密码").
func (m *Mailer) SendAuthCode(smtp models.SMTPConfig, to string, code string, purposeText string) error {
	d, err := dialer(smtp)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", from(smtp), m.brand)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("【%s】%s验证码", m.brand, purposeText))
	msg.SetBody("text/html", m.authCodeBody(code, purposeText))

	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send auth code mail: %w", err)
	}
	return nil
}

// SendTestMail verifies an SMTP configuration from the admin panel.
func (m *Mailer) SendTestMail(smtp models.SMTPConfig, to string) error {
	d, err := dialer(smtp)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", from(smtp), m.brand)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("【%s】SMTP 配置测试", m.brand))
	msg.SetBody("text/html", fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #3182ce;">%s跨境AI智能平台</h2>
			<p>这是一封测试邮件，用于验证 SMTP 配置是否正确。</p>
			<p>如果您收到此邮件，说明邮件服务配置成功！</p>
			<p style="color: #718096; font-size: 12px;">发送时间：%s</p>
		</div>`, m.brand, time.Now().Format("2006-01-02 15:04:05")))

	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("send test mail: %w", err)
	}
	return nil
}

func (m *Mailer) authCodeBody(code string, purposeText string) string {
	return fmt.Sprintf(`
		<div style="max-width: 600px; margin: 0 auto; padding: 20px; font-family: 'Microsoft YaHei', Arial, sans-serif;">
			<div style="text-align: center; margin-bottom: 30px;">
				<h1 style="color: #3B82F6; margin: 0;">%s</h1>
				<p style="color: #6B7280; margin: 5px 0;">跨境AI智能平台</p>
			</div>
			<div style="background: #EBF4FF; border-radius: 12px; padding: 30px; text-align: center;">
				<p style="color: #374151; font-size: 16px;">您的%s验证码是：</p>
				<div style="background: white; border-radius: 8px; padding: 20px; display: inline-block;">
					<span style="font-size: 32px; font-weight: bold; color: #3B82F6; letter-spacing: 8px;">%s</span>
				</div>
				<p style="color: #6B7280; font-size: 14px; margin-top: 20px;">验证码有效期为 10 分钟，请勿泄露给他人</p>
			</div>
			<div style="text-align: center; margin-top: 30px; color: #9CA3AF; font-size: 12px;">
				<p>如果您没有请求此验证码，请忽略此邮件</p>
				<p>© %d %s All Rights Reserved</p>
			</div>
		</div>`, m.brand, purposeText, code, time.Now().Year(), m.brand)
}
