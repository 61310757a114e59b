package postgres

// schemaStatements is executed in order by Migrate. Every statement is
// idempotent so repeated startups converge to the same schema.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		telegram_id BIGINT NOT NULL UNIQUE,
		username VARCHAR(255),
		first_name VARCHAR(255),
		last_name VARCHAR(255),
		language_code VARCHAR(10) NOT NULL DEFAULT 'en',
		balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		withdrawal_locked_balance NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_deposited NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_withdrawn NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_games INTEGER NOT NULL DEFAULT 0,
		games_won INTEGER NOT NULL DEFAULT 0,
		games_lost INTEGER NOT NULL DEFAULT 0,
		total_wagered NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_won NUMERIC(12,2) NOT NULL DEFAULT 0,
		best_multiplier NUMERIC(10,2) NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS game_history (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY,
		crash_point NUMERIC(10,2) NOT NULL,
		total_bet NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_payout NUMERIC(12,2) NOT NULL DEFAULT 0,
		house_profit NUMERIC(12,2) NOT NULL DEFAULT 0,
		player_count INTEGER NOT NULL DEFAULT 0,
		is_completed BOOLEAN NOT NULL DEFAULT FALSE,
		played_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (id, played_at)
	) PARTITION BY RANGE (played_at)`,

	`CREATE INDEX IF NOT EXISTS idx_game_history_played_at ON game_history (played_at DESC)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY,
		user_id BIGINT NOT NULL,
		game_id BIGINT,
		type VARCHAR(20) NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		balance_after NUMERIC(12,2) NOT NULL,
		multiplier NUMERIC(10,2),
		payment_payload VARCHAR(255),
		status VARCHAR(20) NOT NULL DEFAULT 'completed',
		extra_data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ,
		PRIMARY KEY (id, created_at)
	) PARTITION BY RANGE (created_at)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_payload ON transactions (payment_payload) WHERE payment_payload IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS gifts (
		id VARCHAR(50) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		price NUMERIC(12,2) NOT NULL,
		telegram_gift_id VARCHAR(100) NOT NULL,
		emoji VARCHAR(10),
		image_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_unique BOOLEAN NOT NULL DEFAULT FALSE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS promo_codes (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		code VARCHAR(50) NOT NULL UNIQUE,
		balance_reward NUMERIC(12,2) NOT NULL,
		withdrawal_requirement NUMERIC(12,2),
		max_uses INTEGER NOT NULL,
		current_uses INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS promo_code_uses (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		promo_code_id BIGINT NOT NULL REFERENCES promo_codes(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		balance_granted NUMERIC(12,2) NOT NULL,
		withdrawal_requirement NUMERIC(12,2),
		used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (promo_code_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS channel_subscription_bonuses (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		channel_id VARCHAR(255) NOT NULL,
		bonus_amount NUMERIC(12,2) NOT NULL,
		subscription_verified_at TIMESTAMPTZ,
		bonus_claimed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		attempts_count INTEGER NOT NULL DEFAULT 1,
		last_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, channel_id)
	)`,

	`CREATE TABLE IF NOT EXISTS verified_senders (
		chat_id BIGINT PRIMARY KEY,
		username VARCHAR(255),
		first_name VARCHAR(255),
		last_name VARCHAR(255),
		verified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		message_count INTEGER NOT NULL DEFAULT 1,
		is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS system_settings (
		key VARCHAR(100) PRIMARY KEY,
		value JSONB NOT NULL,
		description TEXT,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
