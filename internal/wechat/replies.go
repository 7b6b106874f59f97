// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"fmt"

	"github.com/tomtom215/readmark/internal/models"
)

// Menu click keys.
const (
	KeyRecommend = "RECOMMEND_BOOKS"
	KeyBind      = "BIND_ACCOUNT"
	KeyUnbind    = "UNBIND_ACCOUNT"
)

const welcomeText = "亲爱的书友，欢迎来到阅美西农书香世界！很高兴与你在文字的海洋中相遇，从此，我们将一同探索经典的奥秘，分享阅读的感动。​\n" +
	"在这里，我们会定期为你精选历经时间沉淀的经典图书，从文学巨著到社科佳作，从历史典籍到哲思小品，让每一次推荐都成为你与好书相遇的契机。同时，这里也是你的读书感言分享地，无论是掩卷沉思的顿悟，还是字里行间的共鸣，都可以在这里尽情抒发，与同频的书友碰撞思想的火花。\n" +
	"\n" +
	"发送以下指令或在菜单中的读者服务选择：\n" +
	"【绑定】 - 绑定读者信息\n" +
	"【推荐】 - 获取图书推荐\n" +
	"【帮助】 - 查看使用说明"

const helpText = " 使用帮助：\n" +
	"1. 【绑定】 - 绑定读者信息 (格式: [证号],[类型])\n" +
	"2. 【推荐】 - 获取个性化图书推荐\n" +
	"3. 【解绑】 - 解除当前绑定\n" +
	"4. 类型说明:\n" +
	"   - 0 = 证件号\n" +
	"   - 1 = 条码号\n" +
	"\n" +
	" 读者证号为字母数字组合\n" +
	" 系统根据您的借阅历史推荐书籍\n" +
	" 也可以在底部菜单中的读者服务中使用\n" +
	"\n" +
	"再次感谢你的关注，愿这里的每一本书、每一段感悟，都能启迪你的智慧，为你的生活增添一抹书香与温暖。让我们以书为媒，相伴同行，在阅读的旅程中不断成长。"

const (
	subscribeText = welcomeText + "\n\n📌 您可以这样操作：\n" + helpText

	unknownMenuText  = "🔍 未知菜单项，功能正在快马加鞭地开发中..."
	unknownEventText = "收到一个未知的事件类型，暂时无法处理哦。"
	unsupportedText  = "🤖 暂时只支持文本和菜单点击哦，试试发送【帮助】吧！"

	bindPromptText   = "📝 请按格式输入: [读者证号],[读者类型]\n\n例如: A123,0\n\n类型说明:\n0=证件号(默认)\n1=条码号"
	bindFormatText   = "❌ 格式错误，请按 [读者证号],[读者类型] 格式输入\n例如: A123,0"
	bindCardText     = "❌ 读者证号格式错误，请输入10位字符"
	bindFailedText   = "❌ 绑定失败，请稍后再试"
	unbindOKText     = "✅ 已解除绑定。\n\n您可以再次【绑定】新的读者信息。"
	unbindFailedText = "⚠️ 解绑失败，或您尚未绑定。"

	notBoundText = "⚠️ 您还未绑定，请先发送【绑定】完成注册"
	busyText     = "⚠️ 系统繁忙，请稍后再试"

	recommendHeader = "📚 为您推荐以下精选书籍：\n"
	noHistoryHeader = "⚠️ 未找到您的借阅历史记录，请确认读者证号和类型是否正确。\n📚 为您随机推荐以下图书：\n"

	// ScheduledHeader prefixes the scheduled push.
	ScheduledHeader = "📚 为您定时推荐以下图书：\n"
)

// WelcomeText and HelpText are exported for the web front end.
func WelcomeText() string { return welcomeText }
func HelpText() string    { return helpText }

func bindTypeText(t string) string {
	return fmt.Sprintf("❌ 不支持的类型: %s\n请使用: 0(证件号) 或 1(条码号)", t)
}

func bindOKText(r models.ReaderType, card string) string {
	return fmt.Sprintf("✅ 绑定成功!\n类型: %s\n证号: %s\n\n发送【推荐】获取图书推荐", r.Label(), card)
}

func alreadyBoundText(r *models.Reader) string {
	return fmt.Sprintf("⚠️ 您已绑定: %s, 证号 %s\n\n如需重新绑定，请先发送或点击【解绑】。", r.ReaderType.Label(), r.ReaderCard)
}
