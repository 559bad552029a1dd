package bot

// Callback action tags embedded in inline keyboard buttons.
const (
	cbSubscriptionStatus = "subscription-status"
	cbFAQ                = "faq"
	cbCancelEdit         = "cancel-edit"
)

// basicSubscriptionLevel is the tier sold by the standard invoice and
// carried in its payload.
const basicSubscriptionLevel = 1

// Bot command names.
const (
	cmdStart       = "/start"
	cmdGetTrial    = "/get_trial"
	cmdBuy         = "/buy_subscription"
	cmdEditFAQ     = "/edit_faq"
	cmdEditOrder   = "/edit_order"
	cmdTestPayment = "/test_payment"
)

const msgWelcome = `🚀 *Welcome to the world of conversation automation!* 🚀

Tired of endless messages that keep you from the work that matters? Our service offers personal business bots for your comfort.

✅ *What you get*

🔸 Your time freed from routine messaging.

🔸 Higher business efficiency through flawless correspondence handling.

🔸 A guarantee that no important message goes unanswered.

🔍 *How it works*

Clients give the bot access to their Telegram business accounts. It manages your messengers professionally 24/7, handling every message according to your business processes.

🌟 Take the step to a new *level of interaction* — subscribe *today* and let your business stand out!`

const (
	msgRestriction     = "🛑 Buy a subscription to use this feature 🛑"
	msgTrialUsed       = "You have already used your trial!"
	msgNoDowngrade     = "You cannot get a lower-tier subscription!"
	msgNoDowngradeBuy  = "You cannot buy a lower-tier subscription"
	msgInternalError   = "Something went wrong"
	msgGenericFailure  = "An error occurred, please contact support!"
	msgEditCancelled   = "Editing cancelled!"
	msgFAQUpdated      = "Your FAQ has been updated!"
	msgOrderUpdated    = "Your order info has been updated!"
	msgNoSubscription  = "You have no subscription yet"
	statusDateLayout   = "2 January 2006"
	invoiceTitle       = "Basic subscription"
	invoiceDescription = "The regular subscription, to feel the power of our bots!"
	invoicePriceLabel  = "Basic subscription"
	testInvoiceTitle   = "TEST"
	testInvoiceDesc    = "Test payment, not a real product"
	testInvoiceAmount  = 10050
)

const promptFAQInput = "Now send the text for the _FAQ_ section\n\n*Here is your current message:*\n"

const promptOrderInput = "Now send the text for the _Order_ section\n\n*Here is your current message:*\n"
