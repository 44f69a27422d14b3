package storage

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS property_types (
		property_type_id   SERIAL PRIMARY KEY,
		property_type_code VARCHAR(1) UNIQUE NOT NULL,
		description        TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS tenures (
		tenure_id   SERIAL PRIMARY KEY,
		tenure_code VARCHAR(1) UNIQUE NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ppd_categories (
		ppd_category_id   SERIAL PRIMARY KEY,
		ppd_category_code VARCHAR(1) UNIQUE NOT NULL,
		description       TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS record_statuses (
		record_status_id   SERIAL PRIMARY KEY,
		record_status_code VARCHAR(1) UNIQUE NOT NULL,
		description        TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS property_transactions (
		transaction_id             BIGSERIAL PRIMARY KEY,
		transaction_unique_id      TEXT UNIQUE NOT NULL,
		price                      NUMERIC(14,2) NOT NULL,
		date_of_transfer           DATE NOT NULL,
		postcode                   TEXT NOT NULL,
		property_type_id           INT NOT NULL REFERENCES property_types(property_type_id),
		old_new                    VARCHAR(1) NOT NULL,
		tenure_id                  INT NOT NULL REFERENCES tenures(tenure_id),
		paon                       TEXT,
		saon                       TEXT,
		street                     TEXT,
		locality                   TEXT,
		town_city                  TEXT,
		district                   TEXT,
		county                     TEXT,
		ppd_category_id            INT NOT NULL REFERENCES ppd_categories(ppd_category_id),
		record_status_id           INT NOT NULL REFERENCES record_statuses(record_status_id),
		avg_price_by_property_type NUMERIC(14,2),
		address                    TEXT NOT NULL,
		created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_price  ON property_transactions(price);
	CREATE INDEX IF NOT EXISTS idx_transactions_county ON property_transactions(county);
	CREATE INDEX IF NOT EXISTS idx_transactions_type   ON property_transactions(property_type_id);
`

const seedSQL = `
	INSERT INTO property_types (property_type_code, description) VALUES
		('D', 'Detached'), ('S', 'Semi-Detached'), ('T', 'Terraced'),
		('F', 'Flats/Maisonettes'), ('O', 'Other')
	ON CONFLICT (property_type_code) DO NOTHING;

	INSERT INTO tenures (tenure_code, description) VALUES
		('F', 'Freehold'), ('L', 'Leasehold'), ('U', 'Unknown')
	ON CONFLICT (tenure_code) DO NOTHING;

	INSERT INTO ppd_categories (ppd_category_code, description) VALUES
		('A', 'Standard Price Paid'), ('B', 'Additional Price Paid')
	ON CONFLICT (ppd_category_code) DO NOTHING;

	INSERT INTO record_statuses (record_status_code, description) VALUES
		('A', 'Addition'), ('C', 'Change'), ('D', 'Delete')
	ON CONFLICT (record_status_code) DO NOTHING;
`

const insertTransactionSQL = `
	INSERT INTO property_transactions (
		transaction_unique_id, price, date_of_transfer, postcode,
		property_type_id, old_new, tenure_id, paon, saon, street, locality,
		town_city, district, county, ppd_category_id, record_status_id,
		avg_price_by_property_type, address
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (transaction_unique_id) DO NOTHING
`
